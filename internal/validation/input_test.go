package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("ivan@example.com"))
	assert.NoError(t, ValidateEmail("Ivan.Petrov+work@mail.ru"))

	assert.Error(t, ValidateEmail(""))
	assert.Error(t, ValidateEmail("not-an-email"))
	assert.Error(t, ValidateEmail("two@@example.com"))
	assert.Error(t, ValidateEmail("ivan@localhost"))
}

func TestValidateOrderTitle(t *testing.T) {
	assert.NoError(t, ValidateOrderTitle("Ремонт экрана"))

	assert.Error(t, ValidateOrderTitle(""))
	assert.Error(t, ValidateOrderTitle("ab"))
	assert.Error(t, ValidateOrderTitle(strings.Repeat("а", MaxOrderTitleLength+1)))
}

func TestValidateOrderDescription(t *testing.T) {
	assert.NoError(t, ValidateOrderDescription("Разбит дисплей, тач не работает"))

	assert.Error(t, ValidateOrderDescription(""))
	assert.Error(t, ValidateOrderDescription("коротко"))
}

func TestValidateUrgency(t *testing.T) {
	assert.NoError(t, ValidateUrgency(""))
	assert.NoError(t, ValidateUrgency("low"))
	assert.NoError(t, ValidateUrgency("urgent"))

	assert.Error(t, ValidateUrgency("asap"))
}

func TestValidatePrice(t *testing.T) {
	assert.NoError(t, ValidatePrice("цена", 0))
	assert.NoError(t, ValidatePrice("цена", 3500))

	assert.Error(t, ValidatePrice("цена", -1))
	assert.Error(t, ValidatePrice("цена", MaxPrice+1))
}

func TestValidatePhone(t *testing.T) {
	assert.NoError(t, ValidatePhone(""))
	assert.NoError(t, ValidatePhone("+79161234567"))
	assert.NoError(t, ValidatePhone("8 (916) 123-45-67"))

	assert.Error(t, ValidatePhone("abc"))
	assert.Error(t, ValidatePhone("+7"))
}

func TestValidateUsername(t *testing.T) {
	assert.NoError(t, ValidateUsername("ivan_petrov"))

	assert.Error(t, ValidateUsername(""))
	assert.Error(t, ValidateUsername("ab"))
	assert.Error(t, ValidateUsername("1ivan"))
	assert.Error(t, ValidateUsername("ivan petrov"))
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("Password123"))

	assert.Error(t, ValidatePassword("short1A"))
	assert.Error(t, ValidatePassword("alllowercase1"))
	assert.Error(t, ValidatePassword("ALLUPPERCASE1"))
	assert.Error(t, ValidatePassword("NoDigitsHere"))
}
