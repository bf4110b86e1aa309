// Package validation проверяет поля форм витрины (отзывы, вход).
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Type — ожидаемый тип значения поля.
type Type string

const (
	TypeText     Type = "text"
	TypeEmail    Type = "email"
	TypePassword Type = "password"
	TypeTel      Type = "tel"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Rules — ограничения поля. Нулевые значения отключают проверку.
type Rules struct {
	Required  bool
	MinLength int
	MaxLength int
	Pattern   *regexp.Regexp
	Type      Type
}

// Messages — тексты ошибок; пустые поля заменяются стандартными.
type Messages struct {
	Required     string
	MinLength    string
	MaxLength    string
	Pattern      string
	TypeMismatch string
}

// Config объединяет правила и сообщения поля.
type Config struct {
	Rules    Rules
	Messages Messages
}

// Validate возвращает текст первой нарушенной проверки или пустую строку.
// Порядок: обязательность, минимальная и максимальная длина, шаблон, тип.
func Validate(value string, cfg Config) string {
	rules, msgs := cfg.Rules, withDefaults(cfg.Rules, cfg.Messages)

	if strings.TrimSpace(value) == "" {
		if rules.Required {
			return msgs.Required
		}
		return ""
	}

	length := utf8.RuneCountInString(value)
	if rules.MinLength > 0 && length < rules.MinLength {
		return msgs.MinLength
	}
	if rules.MaxLength > 0 && length > rules.MaxLength {
		return msgs.MaxLength
	}
	if rules.Pattern != nil && !rules.Pattern.MatchString(value) {
		return msgs.Pattern
	}
	if rules.Type == TypeEmail && !emailPattern.MatchString(value) {
		return msgs.TypeMismatch
	}
	return ""
}

func withDefaults(rules Rules, msgs Messages) Messages {
	if msgs.Required == "" {
		msgs.Required = "Field is required"
	}
	if msgs.MinLength == "" {
		msgs.MinLength = fmt.Sprintf("Minimum length is %d", rules.MinLength)
	}
	if msgs.MaxLength == "" {
		msgs.MaxLength = fmt.Sprintf("Maximum length is %d", rules.MaxLength)
	}
	if msgs.Pattern == "" {
		msgs.Pattern = "Invalid format"
	}
	if msgs.TypeMismatch == "" {
		msgs.TypeMismatch = "Invalid type"
	}
	return msgs
}
