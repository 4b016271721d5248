package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ambient is the subset of fields every command needs.
type ambient struct {
	LogLevel  string `validate:"oneof=trace debug info warn error"`
	LogFormat string `validate:"oneof=json console"`
	Output    string `validate:"required"`
	SyncDB    string `validate:"required"`
}

// Validate checks the fields shared by every command. Vendor and database
// sections are validated by the commands that use them.
func (c *Config) Validate() error {
	err := validate.Struct(ambient{
		LogLevel:  c.LogLevel,
		LogFormat: c.LogFormat,
		Output:    c.Output,
		SyncDB:    c.SyncDB,
	})
	return describe("config", err)
}

// ValidateCanvas checks the fields the canvas extract command needs.
func (c *Config) ValidateCanvas() error {
	return describe("canvas config", validate.Struct(c.Canvas))
}

// ValidateClassroom checks the fields the classroom extract command needs.
func (c *Config) ValidateClassroom() error {
	return describe("classroom config", validate.Struct(c.Classroom))
}

// ValidateSchoology checks the fields the schoology extract command needs.
func (c *Config) ValidateSchoology() error {
	return describe("schoology config", validate.Struct(c.Schoology))
}

// ValidateDatabase checks the fields the migrate and load commands need.
func (c *Config) ValidateDatabase() error {
	return describe("database config", validate.Struct(c.Database))
}

// describe rewrites validator's struct-centric errors into field paths an
// operator can act on.
func describe(section string, err error) error {
	if err == nil {
		return nil
	}
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	first := errs[0]
	if first.Tag() == "required" {
		return fmt.Errorf("%s: %s is required", section, first.Field())
	}
	return fmt.Errorf("%s: %s failed %q validation (value %q)",
		section, first.Field(), first.Tag(), fmt.Sprint(first.Value()))
}
