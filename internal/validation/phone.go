package validation

import (
	"regexp"
	"strings"

	"github.com/iudanet/camerannonces/internal/apperr"
)

// CountryPrefix - телефонный код страны (Камерун)
const CountryPrefix = "237"

// PhonePattern определяет допустимый нормализованный номер: код страны + 9 цифр
var PhonePattern = regexp.MustCompile(`^237[0-9]{9}$`)

// localLeadingDigits - первые цифры локальных номеров (мобильные 6, городские 2)
var localLeadingDigits = []string{"6", "2"}

// Имена полей форм
const (
	FieldPhone           = "telephone"
	FieldPassword        = "motDePasse"
	FieldConfirmPassword = "confirmPassword"
	FieldName            = "nom"
	FieldNewPassword     = "nouveauMotDePasse"
	FieldOldPassword     = "ancienMotDePasse"
)

// NormalizePhone приводит номер к виду 237XXXXXXXXX
// Удаляет всё, кроме цифр; номер с кодом страны остаётся как есть;
// локальному номеру добавляется код страны; остальное возвращается без изменений.
func NormalizePhone(phone string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)

	if strings.HasPrefix(digits, CountryPrefix) {
		return digits
	}

	// Международный выход 00237... и национальный 0 перед номером
	if rest, ok := strings.CutPrefix(digits, "00"+CountryPrefix); ok {
		return CountryPrefix + rest
	}
	trimmed := strings.TrimPrefix(digits, "0")
	if strings.HasPrefix(trimmed, CountryPrefix) {
		return trimmed
	}
	for _, lead := range localLeadingDigits {
		if strings.HasPrefix(trimmed, lead) {
			return CountryPrefix + trimmed
		}
	}

	return digits
}

// IsValidPhone проверяет, что нормализованный номер соответствует формату
func IsValidPhone(phone string) bool {
	return PhonePattern.MatchString(NormalizePhone(phone))
}

// ValidatePhone нормализует номер и возвращает ошибку валидации, если он некорректен
func ValidatePhone(phone string) (string, error) {
	if strings.TrimSpace(phone) == "" {
		return "", apperr.Validation(FieldPhone, "Le numéro de téléphone est requis")
	}

	normalized := NormalizePhone(phone)
	if !PhonePattern.MatchString(normalized) {
		return "", apperr.Validation(FieldPhone, "Format invalide (ex: 237698123456)")
	}

	return normalized, nil
}
