package types

import (
	"errors"
	"fmt"
)

// Kind classifies an engine error for the calling layer. The HTTP layer
// maps kinds and codes to status codes and error envelopes; the engine
// itself never deals in wire formats.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindSchemaLimit
	KindCardinality
	KindUndefinedRelationship
	KindPrecondition
	KindNotFound
	KindConflict
)

// Precondition failure reasons. The wire status is identical for both;
// the engine keeps them apart for logging and tests.
const (
	PreconditionMissing = "missing"
	PreconditionStale   = "stale"
)

// Error is a typed engine error carrying a stable code, the
// HTTP-equivalent status, and a formatted message.
type Error struct {
	Kind    Kind
	Code    string
	Status  int
	Message string

	// Reason carries the precondition failure reason for
	// KindPrecondition errors and is empty otherwise.
	Reason string
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

// Is matches errors by code so callers can use errors.Is against a
// constructor's result without caring about message parameters.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// AsError unwraps err into *Error.
func AsError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

func newError(kind Kind, code string, status int, format string, args ...any) *Error {
	return &Error{Kind: kind, Code: code, Status: status, Message: fmt.Sprintf(format, args...)}
}

// Validation errors (400).

// RequestFieldFormatError reports a malformed or out-of-range value for the
// named field.
func RequestFieldFormatError(field string) *Error {
	return newError(KindValidation, "PR400-OD-0006", 400, "format of the field %s is invalid", field)
}

// FieldInvalidError reports an input field that may not be supplied at all,
// such as an engine-managed __-prefixed name.
func FieldInvalidError(field string) *Error {
	return newError(KindValidation, "PR400-OD-0007", 400, "field %s may not be specified", field)
}

// InputRequiredFieldMissing reports a non-nullable declared property with no
// supplied value and no default.
func InputRequiredFieldMissing(field string) *Error {
	return newError(KindValidation, "PR400-OD-0009", 400, "required field %s is missing", field)
}

// FilterParseError reports an unparsable $filter expression.
func FilterParseError() *Error {
	return newError(KindValidation, "PR400-OD-0003", 400, "$filter parse error")
}

// OrderByParseError reports an unparsable $orderby expression.
func OrderByParseError() *Error {
	return newError(KindValidation, "PR400-OD-0015", 400, "$orderby parse error")
}

// CannotOrderByListProperty rejects $orderby on a list-valued property.
func CannotOrderByListProperty(prop string) *Error {
	return newError(KindValidation, "PR400-OD-0040", 400, "cannot specify the list type property %s to $orderby", prop)
}

// QueryInvalidError reports an out-of-range or malformed query parameter.
func QueryInvalidError(param, value string) *Error {
	return newError(KindValidation, "PR400-OD-0029", 400, "query parameter %s value %q is invalid", param, value)
}

// InlineCountParseError reports an unrecognized $inlinecount literal.
func InlineCountParseError(value string) *Error {
	return newError(KindValidation, "PR400-OD-0013", 400, "$inlinecount value %q is invalid", value)
}

// OperatorAndOperandTypeMismatched reports a $filter operand whose literal
// type does not match the named property's declared type.
func OperatorAndOperandTypeMismatched(prop string) *Error {
	return newError(KindValidation, "PR400-OD-0046", 400, "OPERATOR_AND_OPERAND_TYPE_MISMATCHED: property %s", prop)
}

// UnsupportedOperandFormat rejects a non-string literal in a position that
// requires a quoted string, such as a filter function argument.
func UnsupportedOperandFormat(pos string) *Error {
	return newError(KindValidation, "PR400-OD-0047", 400, "operand %s must be a quoted string literal", pos)
}

// UnsupportedQueryOperator rejects a comparison operator the engine does
// not evaluate.
func UnsupportedQueryOperator(op string) *Error {
	return newError(KindValidation, "PR400-OD-0043", 400, "query operator %s is not supported", op)
}

// UnsupportedQueryFunction rejects a filter function the engine does not
// evaluate.
func UnsupportedQueryFunction(name string) *Error {
	return newError(KindValidation, "PR400-OD-0044", 400, "query function %s is not supported", name)
}

// KeyForNavPropNotAllowed rejects a key predicate on a navigation-property
// segment of a create request.
func KeyForNavPropNotAllowed(nav string) *Error {
	return newError(KindValidation, "PR400-OD-0010", 400, "key for navigation property %s must not be specified", nav)
}

// InvalidMultiplicity rejects an association end declaration with an
// unrecognized multiplicity.
func InvalidMultiplicity(m string) *Error {
	return newError(KindValidation, "PR400-OD-0031", 400, "multiplicity %q is invalid", m)
}

// NoSuchAssociation reports a link operation between entity types with no
// declared association. The status is 400, not 404: the relationship
// concept itself is undefined, and existing clients depend on the 400.
func NoSuchAssociation(typeA, typeB string) *Error {
	return newError(KindUndefinedRelationship, "PR400-OD-0008", 400, "no association is defined between %s and %s", typeA, typeB)
}

// StructuralLimitExceeded reports a write that would leave an instance with
// more properties than the configured maximum.
func StructuralLimitExceeded(max int) *Error {
	return newError(KindSchemaLimit, "PR400-OD-0032", 400, "ENTITYTYPE_STRUCTUAL_LIMITATION_EXCEEDED: property count exceeds %d", max)
}

// Not-found errors (404).

// EntitySetNotFound reports an unknown entity type name.
func EntitySetNotFound(name string) *Error {
	return newError(KindNotFound, "PR404-OD-0001", 404, "entity set %s does not exist", name)
}

// EntityNotFound reports an unknown entity id.
func EntityNotFound(id string) *Error {
	return newError(KindNotFound, "PR404-OD-0002", 404, "entity %s does not exist", id)
}

// NavPropNotFound reports an unknown navigation property name.
func NavPropNotFound(name string) *Error {
	return newError(KindNotFound, "PR404-OD-0003", 404, "navigation property %s does not exist", name)
}

// ComplexTypeNotFound reports an unknown complex type name.
func ComplexTypeNotFound(name string) *Error {
	return newError(KindNotFound, "PR404-OD-0002", 404, "complex type %s does not exist", name)
}

// Conflict errors (409).

// ConflictHasRelated refuses deletion of a target that still has instances
// or links depending on it.
func ConflictHasRelated(name string) *Error {
	return newError(KindConflict, "PR409-OD-0001", 409, "%s still has related data", name)
}

// ConflictLinks reports a link creation that would violate the target
// side's multiplicity contract.
func ConflictLinks() *Error {
	return newError(KindCardinality, "PR409-OD-0002", 409, "a conflicting link already exists")
}

// EntityAlreadyExists reports a create against an id or name already in use.
func EntityAlreadyExists(id string) *Error {
	return newError(KindConflict, "PR409-OD-0003", 409, "entity %s already exists", id)
}

// ConflictDuplicateValue reports a write that would give a unique property
// the same value another instance already holds.
func ConflictDuplicateValue(property string) *Error {
	return newError(KindConflict, "PR409-OD-0004", 409, "value of unique property %s is already in use", property)
}

// Precondition errors (412).

// PreconditionFailedMissing reports an absent If-Match token on an
// operation that requires one.
func PreconditionFailedMissing() *Error {
	e := newError(KindPrecondition, "PR412-OD-0001", 412, "If-Match header is required")
	e.Reason = PreconditionMissing
	return e
}

// PreconditionFailedStale reports an If-Match token whose version or
// updated component differs from the stored values.
func PreconditionFailedStale() *Error {
	e := newError(KindPrecondition, "PR412-OD-0001", 412, "ETag does not match")
	e.Reason = PreconditionStale
	return e
}

// Infrastructure sentinels, used below the typed-error surface.
var (
	ErrDetached        = errors.New("backend is detached")
	ErrAlreadyAttached = errors.New("backend is already attached")
	ErrInvalidID       = errors.New("invalid entity ID")
	ErrInvalidData     = errors.New("invalid entity data")
)
