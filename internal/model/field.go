package model

import "time"

type FieldType string

const (
	FieldTypeText    FieldType = "text"
	FieldTypeNumber  FieldType = "number"
	FieldTypePhone   FieldType = "phone"
	FieldTypeEmail   FieldType = "email"
	FieldTypeDate    FieldType = "date"
	FieldTypeURL     FieldType = "url"
	FieldTypeCompany FieldType = "company"
	FieldTypeName    FieldType = "name"
	FieldTypeAddress FieldType = "address"
	FieldTypeIDCard  FieldType = "id_card"
)

// FieldDefinition is the user-defined target schema for one project.
// Definitions are read-only to the processing core.
type FieldDefinition struct {
	ID                    int64     `json:"id" db:"id"`
	ProjectID             int64     `json:"project_id" db:"project_id"`
	Name                  string    `json:"field_name" db:"field_name"`
	Label                 string    `json:"field_label" db:"field_label"`
	Type                  FieldType `json:"field_type" db:"field_type"`
	Required              bool      `json:"is_required" db:"is_required"`
	IsDedupKey            bool      `json:"is_dedup_key" db:"is_dedup_key"`
	ValidationRule        string    `json:"validation_rule,omitempty" db:"validation_rule"`
	ExtractionHint        string    `json:"extraction_hint,omitempty" db:"extraction_hint"`
	AdditionalRequirement string    `json:"additional_requirement,omitempty" db:"additional_requirement"`
	DisplayOrder          int       `json:"display_order" db:"display_order"`
	CreatedAt             time.Time `json:"created_at" db:"created_at"`
}
