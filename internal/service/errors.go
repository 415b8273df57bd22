package service

import (
	"errors"

	"inkwell/internal/database"
	"inkwell/internal/models"
)

func hasCode(err error, code string) bool {
	var appErr *models.AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

func isNotFound(err error) bool {
	return hasCode(err, models.CodeNotFound)
}

func isUniqueViolation(err error) bool {
	return database.IsUniqueViolation(err)
}
