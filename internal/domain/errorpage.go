package domain

import (
	"net/http"
	"strconv"
)

// ErrorPage — заголовок и текст пользовательской страницы ошибки.
type ErrorPage struct {
	Status      int    `json:"status"`
	Title       string `json:"title"`
	Message     string `json:"message"`
	ShowContact bool   `json:"showContact,omitempty"`
}

var errorPages = map[int]ErrorPage{
	http.StatusNotFound: {
		Title:   "404 Error",
		Message: "This page not found. Go back to home and start again.",
	},
	http.StatusInternalServerError: {
		Title:       "500 Error",
		Message:     "Internal server error. Please try again later.",
		ShowContact: true,
	},
}

// ErrorPageFor возвращает страницу ошибки для статуса. customMessage подменяет
// стандартный текст, если он не пустой и не совпадает с кодом статуса.
func ErrorPageFor(status int, customMessage string) ErrorPage {
	page, ok := errorPages[status]
	if !ok {
		page = ErrorPage{Title: "Error", Message: "An unexpected error occurred."}
	}
	page.Status = status
	if customMessage != "" && customMessage != strconv.Itoa(status) {
		page.Message = customMessage
	}
	return page
}
