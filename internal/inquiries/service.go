package inquiries

import (
	"context"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/angelmondragon/gheehive-storefront/internal/address"
	pkgerrors "github.com/angelmondragon/gheehive-storefront/pkg/errors"
	"github.com/angelmondragon/gheehive-storefront/pkg/strapi"
	"github.com/go-playground/validator/v10"
)

// Input is a contact-form submission as typed by the visitor.
type Input struct {
	Name    string `json:"name" validate:"required,max=120"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone" validate:"required,in_mobile"`
	Subject string `json:"subject" validate:"required,max=200"`
	Message string `json:"message" validate:"required,max=4000"`
}

type inquiryAPI interface {
	CreateInquiry(ctx context.Context, inquiry strapi.Inquiry) error
}

type Service struct {
	api      inquiryAPI
	validate *validator.Validate
}

func NewService(api inquiryAPI) (*Service, error) {
	if api == nil {
		return nil, fmt.Errorf("inquiry api required")
	}
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	})
	if err := address.RegisterValidations(v); err != nil {
		return nil, err
	}
	return &Service{api: api, validate: v}, nil
}

// Submit validates the form and forwards it. The backend stores the phone as an integer.
func (s *Service) Submit(ctx context.Context, in Input) error {
	in = Input{
		Name:    strings.TrimSpace(in.Name),
		Email:   strings.TrimSpace(in.Email),
		Phone:   strings.TrimSpace(in.Phone),
		Subject: strings.TrimSpace(in.Subject),
		Message: strings.TrimSpace(in.Message),
	}
	if err := s.validate.Struct(in); err != nil {
		details := map[string]string{}
		if errs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range errs {
				details[fe.Field()] = address.Message(fe.Tag())
			}
		}
		return pkgerrors.New(pkgerrors.CodeValidation, "inquiry validation failed").WithDetails(details)
	}
	phone, err := strconv.ParseInt(in.Phone, 10, 64)
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "inquiry validation failed").
			WithDetails(map[string]string{"phone": address.Message(address.TagMobile)})
	}
	return s.api.CreateInquiry(ctx, strapi.Inquiry{
		Name:    in.Name,
		Email:   in.Email,
		Phone:   phone,
		Subject: in.Subject,
		Message: in.Message,
	})
}
