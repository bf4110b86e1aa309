package validation

import "regexp"

// Готовые конфигурации полей форм витрины.
var (
	Email = Config{
		Rules: Rules{Type: TypeEmail, Required: true},
		Messages: Messages{
			Required:     "Email is required",
			TypeMismatch: "Please enter a valid email",
		},
	}

	Password = Config{
		Rules: Rules{Required: true, MinLength: 6},
		Messages: Messages{
			Required:  "Password is required",
			MinLength: "Password must be at least 6 characters",
			Pattern:   "Password must contain letters and numbers",
		},
	}

	Name = Config{
		Rules: Rules{
			Required:  true,
			MinLength: 2,
			MaxLength: 50,
			Pattern:   regexp.MustCompile(`^[a-zA-Zа-яА-ЯёЁ0-9_\s-]+$`),
		},
		Messages: Messages{
			Required:  "Name is required",
			MinLength: "Name is too short",
			MaxLength: "Name is too long",
			Pattern:   "Name can only contain letters, spaces and hyphens",
		},
	}

	Message = Config{
		Rules: Rules{Required: true, MinLength: 10, MaxLength: 1000},
		Messages: Messages{
			Required:  "Enter the text of the review",
			MinLength: "Minimum of 10 characters",
			MaxLength: "Review is too long (maximum 1000 characters)",
		},
	}
)

// Review — форма отзыва о товаре.
type Review struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
	Rating  int    `json:"rating,omitempty"`
}

// ValidateReview проверяет все поля формы; пустая карта — форма валидна.
func ValidateReview(r Review) map[string]string {
	errs := make(map[string]string)
	if msg := Validate(r.Name, Name); msg != "" {
		errs["name"] = msg
	}
	if msg := Validate(r.Email, Email); msg != "" {
		errs["email"] = msg
	}
	if msg := Validate(r.Message, Message); msg != "" {
		errs["message"] = msg
	}
	if r.Rating < 0 || r.Rating > 5 {
		errs["rating"] = "Rating must be between 1 and 5"
	}
	return errs
}
