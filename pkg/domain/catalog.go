package domain

import "strings"

// Category is one of the fixed book categories.
type Category string

const (
	CategoryProgramming            Category = "Programming"
	CategoryDataScience            Category = "Data Science"
	CategoryMachineLearning        Category = "Machine Learning"
	CategoryArtificialIntelligence Category = "Artificial Intelligence"
	CategoryCybersecurity          Category = "Cybersecurity"
	CategorySoftwareEngineering    Category = "Software Engineering"
	CategoryDatabases              Category = "Databases"
	CategoryWebDevelopment         Category = "Web Development"
	CategoryDevOps                 Category = "DevOps"
	CategoryAlgorithms             Category = "Algorithms"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryProgramming,
	CategoryDataScience,
	CategoryMachineLearning,
	CategoryArtificialIntelligence,
	CategoryCybersecurity,
	CategorySoftwareEngineering,
	CategoryDatabases,
	CategoryWebDevelopment,
	CategoryDevOps,
	CategoryAlgorithms,
}

// ParseCategory matches s against the known categories.
func ParseCategory(s string) (Category, bool) {
	s = strings.TrimSpace(s)
	for _, c := range Categories {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// ParseCategoryList parses a comma-joined category list. Empty input yields an empty set.
func ParseCategoryList(s string) ([]Category, bool) {
	if strings.TrimSpace(s) == "" {
		return nil, true
	}
	var out []Category
	for _, part := range strings.Split(s, ",") {
		c, ok := ParseCategory(part)
		if !ok {
			return nil, false
		}
		out = append(out, c)
	}
	return out, true
}

// JoinCategories renders a category set as "A, B".
func JoinCategories(cs []Category) string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = string(c)
	}
	return strings.Join(parts, ", ")
}

// City is one of the fixed office cities.
type City string

// Cities lists every city in display order.
var Cities = []City{
	"Almaty", "Berlin", "Bishkek", "Bratislava", "Gdansk", "Krakow", "Lodz", "London",
	"Mexico city", "New York", "San Francisco", "Sofia", "Tashkent", "Tbilisi",
	"Vienna", "Vilnius", "Warsaw", "Wroclaw",
}

// ParseCity matches s against the known cities.
func ParseCity(s string) (City, bool) {
	s = strings.TrimSpace(s)
	for _, c := range Cities {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}
