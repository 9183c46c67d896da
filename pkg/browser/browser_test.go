package browser

import "testing"

func TestLocatorString(t *testing.T) {
	tests := []struct {
		loc  Locator
		want string
	}{
		{Locator{CSS: ".project-card, .mobile-card"}, ".project-card, .mobile-card"},
		{Locator{CSS: "button", Text: "Save"}, `button :has-text("Save")`},
	}

	for _, tt := range tests {
		if got := tt.loc.String(); got != tt.want {
			t.Errorf("Expected %q, got %q", tt.want, got)
		}
	}
}

func TestLocatorMatchesText(t *testing.T) {
	loc := Locator{CSS: "button", Text: "Редактировать работы"}

	tests := []struct {
		text string
		want bool
	}{
		{"Редактировать работы", true},
		{"  редактировать\n\t РАБОТЫ  ", true},
		{"✎ Редактировать работы (3)", true},
		{"Редактировать", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := loc.MatchesText(tt.text); got != tt.want {
			t.Errorf("MatchesText(%q): expected %v, got %v", tt.text, tt.want, got)
		}
	}

	if !(Locator{CSS: "button"}).MatchesText("anything") {
		t.Error("Expected empty text filter to match")
	}
}
