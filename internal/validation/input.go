package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Константы валидации
const (
	MinUsernameLength         = 3
	MaxUsernameLength         = 30
	MinOrderTitleLength       = 3
	MaxOrderTitleLength       = 200
	MinOrderDescriptionLength = 10
	MaxOrderDescriptionLength = 5000
	MaxDeviceTypeLength       = 100
	MaxCityLength             = 100
	MinProposalMessageLength  = 10
	MaxProposalMessageLength  = 2000
	MaxDisputeReasonLength    = 200
	MaxDisputeTextLength      = 5000
	MaxCancelReasonLength     = 500
	MinPrice                  = 0.0
	MaxPrice                  = 10000000.0 // 10 миллионов
)

// Допустимые уровни срочности заказа.
var validUrgencies = map[string]struct{}{
	"low": {}, "medium": {}, "high": {}, "urgent": {},
}

// ValidateLength проверяет длину строки.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s должен быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s должен быть не более %d символов", fieldName, max)
	}
	return nil
}

// ValidateEmail проверяет формат email.
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email обязателен")
	}

	email = strings.ToLower(strings.TrimSpace(email))

	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return fmt.Errorf("некорректный формат email")
	}

	localPart, domainPart := parts[0], parts[1]

	if len(localPart) == 0 || len(localPart) > 64 {
		return fmt.Errorf("локальная часть email должна быть от 1 до 64 символов")
	}
	if len(domainPart) == 0 || len(domainPart) > 255 {
		return fmt.Errorf("доменная часть email должна быть от 1 до 255 символов")
	}

	localRegex := regexp.MustCompile(`^[a-z0-9._+-]+$`)
	if !localRegex.MatchString(localPart) {
		return fmt.Errorf("локальная часть email содержит недопустимые символы")
	}

	domainRegex := regexp.MustCompile(`^[a-z0-9.-]+\.[a-z]{2,}$`)
	if !domainRegex.MatchString(domainPart) {
		return fmt.Errorf("доменная часть email имеет некорректный формат")
	}

	return nil
}

// ValidateNonEmpty проверяет, что строка не пустая.
func ValidateNonEmpty(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s не может быть пустым", fieldName)
	}
	return nil
}

// ValidateUsername проверяет имя пользователя.
func ValidateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("имя пользователя обязательно")
	}

	username = strings.TrimSpace(username)

	if err := ValidateLength("имя пользователя", username, MinUsernameLength, MaxUsernameLength); err != nil {
		return err
	}

	usernameRegex := regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("имя пользователя может содержать только буквы, цифры и подчеркивание")
	}

	if unicode.IsDigit(rune(username[0])) {
		return fmt.Errorf("имя пользователя не может начинаться с цифры")
	}

	return nil
}

// ValidateOrderTitle проверяет заголовок заказа.
func ValidateOrderTitle(title string) error {
	if title == "" {
		return fmt.Errorf("заголовок заказа обязателен")
	}
	return ValidateLength("заголовок заказа", strings.TrimSpace(title), MinOrderTitleLength, MaxOrderTitleLength)
}

// ValidateOrderDescription проверяет описание заказа.
func ValidateOrderDescription(description string) error {
	if description == "" {
		return fmt.Errorf("описание заказа обязательно")
	}
	return ValidateLength("описание заказа", strings.TrimSpace(description), MinOrderDescriptionLength, MaxOrderDescriptionLength)
}

// ValidateUrgency проверяет уровень срочности заказа.
func ValidateUrgency(urgency string) error {
	if urgency == "" {
		return nil
	}
	if _, ok := validUrgencies[urgency]; !ok {
		return fmt.Errorf("срочность должна быть одной из: low, medium, high, urgent")
	}
	return nil
}

// ValidatePrice проверяет цену или бюджет.
func ValidatePrice(fieldName string, price float64) error {
	if price < MinPrice {
		return fmt.Errorf("%s не может быть отрицательным", fieldName)
	}
	if price > MaxPrice {
		return fmt.Errorf("%s не может превышать %.0f", fieldName, MaxPrice)
	}
	return nil
}

// ValidateProposalMessage проверяет сопроводительное сообщение отклика.
func ValidateProposalMessage(message string) error {
	if message == "" {
		return fmt.Errorf("сообщение отклика обязательно")
	}
	return ValidateLength("сообщение отклика", strings.TrimSpace(message), MinProposalMessageLength, MaxProposalMessageLength)
}

// ValidateDisputeReason проверяет причину спора.
func ValidateDisputeReason(reason string) error {
	if strings.TrimSpace(reason) == "" {
		return fmt.Errorf("причина спора обязательна")
	}
	return ValidateLength("причина спора", strings.TrimSpace(reason), 1, MaxDisputeReasonLength)
}

// ValidateCancelReason проверяет причину отмены отклика.
func ValidateCancelReason(reason string) error {
	if strings.TrimSpace(reason) == "" {
		return fmt.Errorf("причина отмены обязательна")
	}
	return ValidateLength("причина отмены", strings.TrimSpace(reason), 1, MaxCancelReasonLength)
}

// ValidateCity проверяет название города.
func ValidateCity(city string) error {
	if city == "" {
		return nil
	}
	return ValidateLength("город", strings.TrimSpace(city), 0, MaxCityLength)
}

// ValidatePhone проверяет номер телефона.
func ValidatePhone(phone string) error {
	if phone == "" {
		return nil
	}
	phoneRegex := regexp.MustCompile(`^\+?[0-9][0-9\s\-()]{5,19}$`)
	if !phoneRegex.MatchString(strings.TrimSpace(phone)) {
		return fmt.Errorf("некорректный формат номера телефона")
	}
	return nil
}
