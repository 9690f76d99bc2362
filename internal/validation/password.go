package validation

import (
	"strings"

	"github.com/iudanet/camerannonces/internal/apperr"
)

// MinPasswordLen минимальная длина пароля
const MinPasswordLen = 6

// MinNameLen минимальная длина имени
const MinNameLen = 2

// ValidatePassword проверяет минимальные требования к паролю
// Только длина, другие правила на клиенте не проверяются
func ValidatePassword(password string) error {
	return validatePasswordField(FieldPassword, password)
}

// ValidatePasswordConfirmation проверяет совпадение пароля и подтверждения
func ValidatePasswordConfirmation(password, confirm string) error {
	if password != confirm {
		return apperr.Validation(FieldConfirmPassword, "Les mots de passe ne correspondent pas")
	}
	return nil
}

// ValidateDisplayName проверяет имя пользователя
func ValidateDisplayName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return apperr.Validation(FieldName, "Le nom est requis")
	}
	if len([]rune(name)) < MinNameLen {
		return apperr.Validation(FieldName, "Le nom doit contenir au moins %d caractères", MinNameLen)
	}
	return nil
}

func validatePasswordField(field, password string) error {
	if password == "" {
		return apperr.Validation(field, "Le mot de passe est requis")
	}
	if len([]rune(password)) < MinPasswordLen {
		return apperr.Validation(field, "Le mot de passe doit contenir au moins %d caractères", MinPasswordLen)
	}
	return nil
}
