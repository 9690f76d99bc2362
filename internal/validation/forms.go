package validation

import (
	"strings"

	"github.com/iudanet/camerannonces/internal/apperr"
)

// LoginForm - данные формы входа
type LoginForm struct {
	Phone    string
	Password string
}

// RegisterForm - данные формы регистрации
type RegisterForm struct {
	Name            string
	Phone           string
	Password        string
	ConfirmPassword string
	Email           string
	City            string
	District        string
}

// ResetPasswordForm - данные формы восстановления пароля
type ResetPasswordForm struct {
	Phone           string
	NewPassword     string
	ConfirmPassword string
}

// ValidateLogin проверяет форму входа и возвращает нормализованный номер
func ValidateLogin(form LoginForm) (string, error) {
	phone, err := ValidatePhone(form.Phone)
	if err != nil {
		return "", err
	}
	if form.Password == "" {
		return "", apperr.Validation(FieldPassword, "Le mot de passe est requis")
	}
	return phone, nil
}

// ValidateRegistration проверяет форму регистрации и возвращает нормализованную копию
func ValidateRegistration(form RegisterForm) (RegisterForm, error) {
	if err := ValidateDisplayName(form.Name); err != nil {
		return form, err
	}

	phone, err := ValidatePhone(form.Phone)
	if err != nil {
		return form, err
	}

	if err := ValidatePassword(form.Password); err != nil {
		return form, err
	}
	if err := ValidatePasswordConfirmation(form.Password, form.ConfirmPassword); err != nil {
		return form, err
	}

	form.Name = strings.TrimSpace(form.Name)
	form.Phone = phone
	form.Email = strings.TrimSpace(form.Email)
	form.City = strings.TrimSpace(form.City)
	form.District = strings.TrimSpace(form.District)
	return form, nil
}

// ValidatePasswordReset проверяет форму восстановления пароля
func ValidatePasswordReset(form ResetPasswordForm) (string, error) {
	phone, err := ValidatePhone(form.Phone)
	if err != nil {
		return "", err
	}
	if err := validatePasswordField(FieldNewPassword, form.NewPassword); err != nil {
		return "", err
	}
	if err := ValidatePasswordConfirmation(form.NewPassword, form.ConfirmPassword); err != nil {
		return "", err
	}
	return phone, nil
}

// ValidatePasswordChange проверяет форму смены пароля
func ValidatePasswordChange(oldPassword, newPassword, confirm string) error {
	if oldPassword == "" {
		return apperr.Validation(FieldOldPassword, "Ancien mot de passe obligatoire")
	}
	if err := validatePasswordField(FieldNewPassword, newPassword); err != nil {
		return err
	}
	return ValidatePasswordConfirmation(newPassword, confirm)
}
