package typedrest

import (
	"fmt"
	"reflect"
	"strings"
)

// ContentTypeDefault is the pseudo content type for unconditional bindings:
// one model for the slot regardless of the negotiated content type.
const ContentTypeDefault = "default"

// SlotKind identifies which logical slot of an endpoint a schema binding
// describes.
type SlotKind int

const (
	// SlotRequestBody binds a model to the request body.
	SlotRequestBody SlotKind = iota
	// SlotResponse binds a model to one response status code.
	SlotResponse
	// SlotError binds a model to error payloads.
	SlotError
)

func (k SlotKind) String() string {
	switch k {
	case SlotRequestBody:
		return "request_body"
	case SlotResponse:
		return "response"
	case SlotError:
		return "error"
	default:
		return fmt.Sprintf("slot(%d)", int(k))
	}
}

// Slot is a fully-qualified binding slot. Status is meaningful only for
// SlotResponse.
type Slot struct {
	Kind   SlotKind
	Status int
}

// RequestBodySlot is the slot for the request body model.
func RequestBodySlot() Slot { return Slot{Kind: SlotRequestBody} }

// ResponseSlot is the slot for the model of one response status.
func ResponseSlot(status int) Slot { return Slot{Kind: SlotResponse, Status: status} }

// ErrorSlot is the slot for error payload models.
func ErrorSlot() Slot { return Slot{Kind: SlotError} }

func (s Slot) String() string {
	if s.Kind == SlotResponse {
		return fmt.Sprintf("%s(%d)", s.Kind, s.Status)
	}
	return s.Kind.String()
}

// SchemaBinding associates a (slot, content type) pair with a model type.
type SchemaBinding struct {
	Slot        Slot
	ContentType string
	Model       reflect.Type
}

// BindingSet holds every schema binding of one endpoint. Invariants are
// enforced at declaration time, never per request:
//
//   - no two bindings share the same (slot, content type) pair;
//   - within one slot, no model type is bound under two content types.
//     Aliasing a second content type to the same model would let a client
//     send data intended for one schema under another declared content type
//     and have it silently accepted.
type BindingSet struct {
	bindings map[Slot]map[string]reflect.Type
	models   map[Slot]map[reflect.Type]string
}

// NewBindingSet creates an empty binding set.
func NewBindingSet() *BindingSet {
	return &BindingSet{
		bindings: make(map[Slot]map[string]reflect.Type),
		models:   make(map[Slot]map[reflect.Type]string),
	}
}

// Bind declares a binding. contentType may be ContentTypeDefault for an
// unconditional binding. Returns an EndpointMetadataError on invariant
// violations.
func (b *BindingSet) Bind(slot Slot, contentType string, model reflect.Type) error {
	if model == nil {
		return newMetadataError("binding for %s: model must not be nil", slot)
	}
	contentType = strings.ToLower(contentType)

	byCT := b.bindings[slot]
	if byCT == nil {
		byCT = make(map[string]reflect.Type)
		b.bindings[slot] = byCT
	}
	if _, dup := byCT[contentType]; dup {
		return newMetadataError(
			"duplicate binding for slot %s and content type %q", slot, contentType)
	}

	byModel := b.models[slot]
	if byModel == nil {
		byModel = make(map[reflect.Type]string)
		b.models[slot] = byModel
	}
	if existing, aliased := byModel[model]; aliased {
		return newMetadataError(
			"model %s already bound to content type %q in slot %s, cannot alias it to %q",
			model, existing, slot, contentType)
	}

	byCT[contentType] = model
	byModel[model] = contentType
	return nil
}

// Resolve looks up the model for a (slot, content type) pair. Conditional
// bindings match the exact content type; unconditional slots always resolve
// through the "default" binding.
func (b *BindingSet) Resolve(slot Slot, contentType string) (reflect.Type, bool) {
	byCT, ok := b.bindings[slot]
	if !ok {
		return nil, false
	}
	if model, ok := byCT[strings.ToLower(contentType)]; ok {
		return model, true
	}
	model, ok := byCT[ContentTypeDefault]
	return model, ok
}

// Slots returns every declared slot, for OpenAPI generation.
func (b *BindingSet) Slots() []Slot {
	slots := make([]Slot, 0, len(b.bindings))
	for slot := range b.bindings {
		slots = append(slots, slot)
	}
	return slots
}

// BindingsFor returns the content-type-to-model mapping for one slot.
func (b *BindingSet) BindingsFor(slot Slot) map[string]reflect.Type {
	byCT := b.bindings[slot]
	out := make(map[string]reflect.Type, len(byCT))
	for ct, model := range byCT {
		out[ct] = model
	}
	return out
}
