// Package sl содержит атрибуты slog, общие для всех сервисов Subly.
package sl

import "log/slog"

// Err возвращает атрибут "error" с текстом ошибки. nil выводится как "<nil>",
// чтобы логирование не падало на пустой ошибке.
//
//	log.Error("failed to update billing date", sl.Err(err))
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.String("error", err.Error())
}

// Op возвращает атрибут "op" с именем операции, как в const op.
func Op(op string) slog.Attr {
	return slog.String("op", op)
}
