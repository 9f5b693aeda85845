package clean

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kociii/reData/internal/model"
)

func TestCleanPhone(t *testing.T) {
	assert.Equal(t, "+8613800138000", Clean(" +86 138-0013-8000 ", model.FieldTypePhone))
	assert.Equal(t, "13800138000", Clean("tel: 13800138000", model.FieldTypePhone))
	assert.Equal(t, "", Clean("n/a", model.FieldTypePhone))
}

func TestCleanEmail(t *testing.T) {
	assert.Equal(t, "john.doe@example.com", Clean("  John.Doe@Example.COM ", model.FieldTypeEmail))
	assert.Equal(t, "a@b.com", Clean("a @ b .com", model.FieldTypeEmail))
}

func TestCleanNumberAndIDCard(t *testing.T) {
	assert.Equal(t, "12345", Clean(" 12,345 ", model.FieldTypeNumber))
	assert.Equal(t, "110101199003071234", Clean("110101 1990 0307 1234", model.FieldTypeIDCard))
	assert.Equal(t, "11010119900307123X", Clean("110101-19900307-123X", model.FieldTypeIDCard))
}

func TestCleanDate(t *testing.T) {
	assert.Equal(t, "2024-03-15", Clean(" 2024-03-15 ", model.FieldTypeDate))
	assert.Equal(t, "2024/03/1512:30:00", Clean("on 2024/03/15 12:30:00", model.FieldTypeDate))
}

func TestCleanCompany(t *testing.T) {
	assert.Equal(t, "Acme Holdings Ltd", Clean("  Acme   Holdings\tLtd ", model.FieldTypeCompany))
	// A digits-only value is not a company name, even spaced out.
	assert.Equal(t, "", Clean(" 404044 ", model.FieldTypeCompany))
	assert.Equal(t, "", Clean(" 404 044 001 ", model.FieldTypeCompany))
	assert.Equal(t, "3M Company", Clean("3M  Company", model.FieldTypeCompany))
}

func TestCleanDefaultCollapsesWhitespace(t *testing.T) {
	assert.Equal(t, "hello world", Clean("  hello \t\n world ", model.FieldTypeText))
	assert.Equal(t, "a b", Clean("a\x00b", model.FieldTypeName))
}

func TestCleanIdempotent(t *testing.T) {
	cases := []struct {
		value string
		typ   model.FieldType
	}{
		{" +86 138 0013 8000", model.FieldTypePhone},
		{" John.Doe@Example.COM ", model.FieldTypeEmail},
		{" 12,345 ", model.FieldTypeNumber},
		{"  Acme   Holdings ", model.FieldTypeCompany},
		{"  hello \t world ", model.FieldTypeText},
		{"2024-03-15 12:00", model.FieldTypeDate},
	}
	for _, tc := range cases {
		once := Clean(tc.value, tc.typ)
		assert.Equal(t, once, Clean(once, tc.typ), "type %s", tc.typ)
	}
}

func TestValidate(t *testing.T) {
	assert.True(t, Validate("anything", ""))
	// Empty values pass regardless of rule.
	assert.True(t, Validate("", `^1\d{10}$`))
	assert.True(t, Validate("13800138000", `^1\d{10}$`))
	assert.False(t, Validate("abc", `^1\d{10}$`))
	// Malformed rules never reject.
	assert.True(t, Validate("abc", `([`))
}
