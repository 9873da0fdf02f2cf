/*
Package runner drives the conversation engine from a console or a script.

It reads one event at a time through an IOHandler, hands it to the engine
under a fixed chat ID and prints the replies.

# Key Components

  - Runner: the read, handle, print loop.
  - TextHandler: interactive console IO. "#2" presses the second button of the
    last reply, "!book:add" presses a raw tag, anything else is typed text.
  - JSONHandler: JSON Lines IO for scripted sessions.
  - SanitizeInput / SanitizeEvent: the input policy shared with the HTTP ingress.

# Usage

	r := runner.NewRunner(
		runner.WithChatID("100"),
		runner.WithInputHandler(runner.NewTextHandler(os.Stdin, os.Stdout)),
	)
	if err := r.Run(ctx, engine); err != nil {
		log.Fatal(err)
	}
*/
package runner
