// Package response содержит вспомогательные типы и функции для формирования
// унифицированных JSON‑ответов HTTP‑обработчиков.
package response

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator"
)

// Response стандартный JSON-ответ: Status "OK" или "Error", текст ошибки
// при неуспехе и данные при успехе.
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

const (
	StatusOK    = "OK"
	StatusError = "Error"
)

// StatusOKWithData возвращает успешный Response с переданными данными.
func StatusOKWithData(data any) Response {
	return Response{
		Status: StatusOK,
		Data:   data,
	}
}

// Error возвращает Response с ошибкой и переданным сообщением.
func Error(msg string) Response {
	return Response{
		Status: StatusError,
		Error:  msg,
	}
}

// validationMessages тексты нарушений по тегу валидатора, %s заменяется
// именем поля.
var validationMessages = map[string]string{
	"required":    "field %s is a required field",
	"hexadecimal": "field %s can contain only hexadecimal characters",
	"uuid":        "field %s can contain only uuid",
}

// ValidationError формирует Response со статусом Error на основе ошибок валидации.
// Нарушения перечисляются через запятую.
func ValidationError(errs validator.ValidationErrors) Response {
	msgs := make([]string, 0, len(errs))
	for _, err := range errs {
		if err.ActualTag() == "len" {
			msgs = append(msgs, fmt.Sprintf("field %s must be %s characters long", err.Field(), err.Param()))
			continue
		}
		format, ok := validationMessages[err.ActualTag()]
		if !ok {
			format = "field %s is not a valid"
		}
		msgs = append(msgs, fmt.Sprintf(format, err.Field()))
	}
	return Response{
		Status: StatusError,
		Error:  strings.Join(msgs, ", "),
	}
}
