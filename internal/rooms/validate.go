package rooms

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Tyrowin/roomchat/internal/chat"
)

var validate = validator.New()

type joinInput struct {
	Room        string `validate:"max=128"`
	DisplayName string `validate:"max=64"`
}

type messageInput struct {
	Text   string `validate:"required,max=4000"`
	Author string `validate:"max=64"`
	Room   string `validate:"max=128"`
}

func check(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return chat.NewError(chat.CodeValidation, err.Error())
	}
	fe := fieldErrs[0]
	switch {
	case fe.Field() == "Text" && fe.Tag() == "required":
		return chat.NewError(chat.CodeValidation, "Message required")
	case fe.Tag() == "max":
		return chat.NewError(chat.CodeValidation,
			fmt.Sprintf("%s must be at most %s characters", fieldLabel(fe.Field()), fe.Param()))
	default:
		return chat.NewError(chat.CodeValidation, fmt.Sprintf("%s is invalid", fieldLabel(fe.Field())))
	}
}

func fieldLabel(field string) string {
	switch field {
	case "DisplayName", "Author":
		return "username"
	case "Text":
		return "message"
	default:
		return strings.ToLower(field)
	}
}
