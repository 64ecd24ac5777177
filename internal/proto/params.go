package proto

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/vovakirdan/wirecall-server/internal/core"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// InviteParams are the decoded params of an invited request.
type InviteParams struct {
	UserID        string `json:"userId"`
	Number        int    `json:"number"`
	Targets       string `json:"targets"`
	TypeOfMedia   string `json:"typeOfMedia"`
	TypeOfSession string `json:"typeOfSession"`
}

// AnswerParams are the decoded params of an answer request.
type AnswerParams struct {
	TargetID    string `json:"targetId"`
	InviterID   string `json:"inviterId"`
	TypeOfMedia string `json:"typeOfMedia"`
	Decision    string `json:"decision"`
}

// inviteWire accepts every spelling older clients use. Presence is checked,
// emptiness is not.
type inviteWire struct {
	UserID         *string    `json:"userId" validate:"required"`
	Number         *flexInt   `json:"number" validate:"required"`
	Targets        *rawTarget `json:"targets" validate:"required_without=TargetUsers"`
	TargetUsers    *rawTarget `json:"targetUsers"`
	TypeOfMedia    *string    `json:"typeOfMedia" validate:"required_without=TypeOffMedia"`
	TypeOffMedia   *string    `json:"typeOffMedia"`
	TypeOfSession  *string    `json:"typeOfSession" validate:"required_without=TypeOffSession"`
	TypeOffSession *string    `json:"typeOffSession"`
}

type answerWire struct {
	TargetID    *string `json:"targetId" validate:"required"`
	InviterID   *string `json:"inviterId" validate:"required"`
	TypeOfMedia *string `json:"typeOfMedia" validate:"required"`
	Decision    *string `json:"decision" validate:"required,oneof=accept reject"`
}

// DecodeInvite decodes and validates invited params.
func DecodeInvite(raw json.RawMessage) (InviteParams, error) {
	var w inviteWire
	if err := decode(MethodInvited, raw, &w); err != nil {
		return InviteParams{}, err
	}
	p := InviteParams{
		UserID:        *w.UserID,
		Number:        w.Number.n,
		TypeOfMedia:   firstOf(w.TypeOfMedia, w.TypeOffMedia),
		TypeOfSession: firstOf(w.TypeOfSession, w.TypeOffSession),
	}
	if w.Targets != nil {
		p.Targets = w.Targets.raw
	} else {
		p.Targets = w.TargetUsers.raw
	}
	return p, nil
}

// DecodeAnswer decodes and validates answer params.
func DecodeAnswer(raw json.RawMessage) (AnswerParams, error) {
	var w answerWire
	if err := decode(MethodAnswer, raw, &w); err != nil {
		return AnswerParams{}, err
	}
	return AnswerParams{
		TargetID:    *w.TargetID,
		InviterID:   *w.InviterID,
		TypeOfMedia: *w.TypeOfMedia,
		Decision:    *w.Decision,
	}, nil
}

func decode(method Method, raw json.RawMessage, dst any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		raw = []byte("{}")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		var fe *fieldError
		var ute *json.UnmarshalTypeError
		switch {
		case errors.As(err, &fe):
			return core.MalformedPayload(string(method), fe.field, fe.err)
		case errors.As(err, &ute) && ute.Field != "":
			return core.MalformedPayload(string(method), ute.Field, err)
		default:
			return core.MalformedPayload(string(method), "params", err)
		}
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) || len(verrs) == 0 {
			return core.MalformedPayload(string(method), "params", err)
		}
		first := verrs[0]
		switch first.Tag() {
		case "required", "required_without":
			return core.MissingParameter(string(method), first.Field())
		default:
			return core.MalformedPayload(string(method), first.Field(), first)
		}
	}
	return nil
}

func firstOf(vals ...*string) string {
	for _, v := range vals {
		if v != nil {
			return *v
		}
	}
	return ""
}

type fieldError struct {
	field string
	err   error
}

func (e *fieldError) Error() string { return e.field + ": " + e.err.Error() }

// flexInt accepts a JSON number or a numeric string.
type flexInt struct{ n int }

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := string(bytes.TrimSpace(b))
	if unq, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unq)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return &fieldError{field: "number", err: err}
	}
	f.n = n
	return nil
}

// rawTarget holds the serialized target list. A JSON string is unquoted,
// anything else is kept verbatim; its structure is checked during fan-out.
type rawTarget struct{ raw string }

func (r *rawTarget) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return &fieldError{field: "targets", err: err}
		}
		r.raw = s
		return nil
	}
	r.raw = string(b)
	return nil
}
