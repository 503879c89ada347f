package utils

import "testing"

func TestValidateEmail(t *testing.T) {
	valid := []string{
		"student@example.com",
		"first.last@university.ac.uk",
		"user+tag@mail.example.org",
	}
	for _, email := range valid {
		if !ValidateEmail(email) {
			t.Errorf("expected %q to be valid", email)
		}
	}

	invalid := []string{
		"",
		"plainaddress",
		"@example.com",
		"user@",
		"user@example",
		"user @example.com",
	}
	for _, email := range invalid {
		if ValidateEmail(email) {
			t.Errorf("expected %q to be invalid", email)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	if ok, msg := ValidatePassword("short"); ok || msg == "" {
		t.Error("expected short password to be rejected with a message")
	}
	if ok, _ := ValidatePassword("longenough"); !ok {
		t.Error("expected 8+ character password to pass")
	}
}

func TestSanitizeInput(t *testing.T) {
	if got := SanitizeInput("  hello\x00world  "); got != "helloworld" {
		t.Errorf("got %q", got)
	}
	if got := SanitizeInput("clean"); got != "clean" {
		t.Errorf("got %q", got)
	}
}
