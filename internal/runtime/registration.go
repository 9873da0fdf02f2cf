package runtime

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/aretw0/libris/internal/presentation/chat"
	"github.com/aretw0/libris/pkg/domain"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	stepEmail domain.Step = "await_email"
	stepCode  domain.Step = "await_code"
)

// MaxCodeAttempts is how many wrong codes end a registration.
const MaxCodeAttempts = 3

type registrationDraft struct {
	Email      string `mapstructure:"email"`
	EmployeeID string `mapstructure:"employee_id"`
	Name       string `mapstructure:"name"`
	CodeHash   string `mapstructure:"code_hash"`
	Attempts   int    `mapstructure:"attempts"`
}

func registrationFlow() workflow {
	return workflow{
		stepEmail: {
			prompt: func(t *turn) { t.say("👋 Welcome to the library! Please send your work email to register.") },
			text:   func(t *turn, in string) { t.sendCode(in) },
		},
		stepCode: {
			prompt: func(t *turn) {
				d := readDraft[registrationDraft](t)
				t.say(fmt.Sprintf("We sent a 6-digit code to %s. Send it here.", d.Email),
					[]domain.Button{{Label: "Cancel", Tag: "reg:cancel"}})
			},
			text: func(t *turn, in string) { t.checkCode(in) },
		},
	}
}

// start handles /start: deep links for members, a greeting, or registration.
func (t *turn) start(payload string) {
	if t.id.Registered {
		if payload != "" {
			t.deepLink(payload)
			return
		}
		t.say("👋 Welcome back!\n\n" + chat.Help(t.id.IsAdmin))
		return
	}
	if t.id.Degraded {
		t.unavailable()
		return
	}
	if t.state.Workflow == domain.WorkflowRegistration {
		t.prompt()
		return
	}
	t.begin(domain.WorkflowRegistration, stepEmail)
}

func (t *turn) sendCode(in string) {
	addr, err := mail.ParseAddress(in)
	if err != nil {
		t.invalid("registration", "That does not look like an email address.")
		return
	}
	email := strings.ToLower(addr.Address)
	emp, err := t.e.store.FindEmployeeByEmail(t.ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		t.invalid("registration", "No employee uses that email. Check it and try again.")
		return
	}
	if err != nil {
		t.fail("registration", err)
		return
	}

	code, err := t.e.codeGen()
	if err != nil {
		t.fail("registration", err)
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		t.fail("registration", err)
		return
	}
	if t.e.mailer == nil {
		t.fail("registration", errors.New("no mailer configured"))
		return
	}
	if err := t.e.mailer.SendVerificationCode(t.ctx, email, code); err != nil {
		t.fail("registration", fmt.Errorf("send code: %w", err))
		return
	}
	writeDraft(t, registrationDraft{
		Email:      email,
		EmployeeID: emp.ID.String(),
		Name:       emp.FullName,
		CodeHash:   string(hash),
	})
	t.next(stepCode)
}

func (t *turn) checkCode(in string) {
	d := readDraft[registrationDraft](t)
	if bcrypt.CompareHashAndPassword([]byte(d.CodeHash), []byte(in)) != nil {
		d.Attempts++
		t.e.emitFailure(t.ctx, t.state.ChatID, "registration", domain.ValidationFailure, errors.New("wrong code"))
		if d.Attempts >= MaxCodeAttempts {
			t.done("Too many wrong codes. Send /start to try again.")
			return
		}
		t.state.Scratchpad[keyAttempts] = d.Attempts
		t.say(fmt.Sprintf("Wrong code. %d attempt(s) left.", MaxCodeAttempts-d.Attempts))
		return
	}

	employeeID, ok := parseID(d.EmployeeID)
	if !ok {
		t.fail("registration", domain.ErrNotFound)
		return
	}
	if err := t.register(employeeID); err != nil {
		t.fail("registration", err)
		return
	}
	t.e.resolver.Forget(t.state.ChatID)
	t.done(fmt.Sprintf("✅ Welcome, %s! You are registered.\n\n%s", d.Name, chat.Help(false)))
}

// register links the chat to the employee with the user role. It is safe to
// repeat after a partial failure.
func (t *turn) register(employeeID uuid.UUID) error {
	tg, err := t.e.store.FindTelegramUser(t.ctx, t.state.ChatID)
	if errors.Is(err, domain.ErrNotFound) {
		tg, err = t.e.store.CreateTelegramUser(t.ctx, domain.TelegramUser{TelegramID: t.state.ChatID})
	}
	if err != nil {
		return fmt.Errorf("telegram user: %w", err)
	}

	existing, err := t.e.store.FindAppUserByTelegram(t.ctx, tg.ID)
	if err == nil {
		t.e.logger.Info("chat already registered", "chat_id", t.state.ChatID, "app_user_id", existing.ID)
		return nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("app user: %w", err)
	}

	role, err := t.e.store.FindRoleByName(t.ctx, domain.RoleUser)
	if err != nil {
		return fmt.Errorf("user role: %w", err)
	}
	u, err := t.e.store.CreateAppUser(t.ctx, domain.AppUser{
		TelegramUserID: tg.ID,
		EmployeeID:     employeeID,
		RoleID:         role.ID,
	})
	if err != nil {
		return fmt.Errorf("app user: %w", err)
	}
	t.e.emitCommit(t.ctx, t.state.ChatID, "app_user", "create", u.ID.String())
	return nil
}
