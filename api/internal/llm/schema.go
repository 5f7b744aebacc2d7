package llm

type Type string

const (
	TypeString  Type = "string"
	TypeNumber  Type = "number"
	TypeInteger Type = "integer"
	TypeBoolean Type = "boolean"
	TypeArray   Type = "array"
	TypeObject  Type = "object"
)

// Schema describes the JSON shape a reply must take. Order lists object
// properties in the order the model should produce them.
type Schema struct {
	Type        Type
	Description string
	Enum        []string
	Items       *Schema
	Properties  map[string]*Schema
	Order       []string
	Required    []string
}

func String(desc string) *Schema  { return &Schema{Type: TypeString, Description: desc} }
func Number(desc string) *Schema  { return &Schema{Type: TypeNumber, Description: desc} }
func Integer(desc string) *Schema { return &Schema{Type: TypeInteger, Description: desc} }

func Enum(desc string, values ...string) *Schema {
	return &Schema{Type: TypeString, Description: desc, Enum: values}
}

func ArrayOf(items *Schema) *Schema { return &Schema{Type: TypeArray, Items: items} }

// Object builds an object schema whose properties are produced and required in
// the order given.
func Object(props ...Property) *Schema {
	s := &Schema{Type: TypeObject, Properties: make(map[string]*Schema, len(props))}
	for _, p := range props {
		s.Properties[p.Name] = p.Schema
		s.Order = append(s.Order, p.Name)
		s.Required = append(s.Required, p.Name)
	}
	return s
}

type Property struct {
	Name   string
	Schema *Schema
}

func Prop(name string, s *Schema) Property { return Property{Name: name, Schema: s} }

// JSON renders the schema as a JSON-Schema map, used by vendors that take raw
// JSON Schema.
func (s *Schema) JSON() map[string]any {
	if s == nil {
		return nil
	}
	m := map[string]any{"type": string(s.Type)}
	if s.Description != "" {
		m["description"] = s.Description
	}
	if len(s.Enum) > 0 {
		m["enum"] = append([]string(nil), s.Enum...)
	}
	if s.Items != nil {
		m["items"] = s.Items.JSON()
	}
	if s.Type == TypeObject {
		props := make(map[string]any, len(s.Properties))
		for k, v := range s.Properties {
			props[k] = v.JSON()
		}
		m["properties"] = props
		m["required"] = append([]string{}, s.Required...)
		m["additionalProperties"] = false
	}
	return m
}
