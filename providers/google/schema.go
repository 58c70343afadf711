package google

import (
	"strings"

	"github.com/deepnoodle-ai/wonton/schema"
	"google.golang.org/genai"
)

// convertSchemaToGenAI converts a tool schema to the Gemini schema format.
// Gemini spells types in upper case ("OBJECT", "STRING").
func convertSchemaToGenAI(s *schema.Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	genaiSchema := &genai.Schema{
		Type:        genaiType(string(s.Type)),
		Description: s.Description,
	}
	if s.Properties != nil {
		genaiSchema.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			genaiSchema.Properties[name] = convertPropertyToGenAI(prop)
		}
	}
	if len(s.Required) > 0 {
		genaiSchema.Required = s.Required
	}
	return genaiSchema
}

func convertPropertyToGenAI(prop *schema.Property) *genai.Schema {
	if prop == nil {
		return nil
	}
	genaiSchema := &genai.Schema{
		Type:        genaiType(string(prop.Type)),
		Description: prop.Description,
	}
	if len(prop.Enum) > 0 {
		enumValues := make([]string, 0, len(prop.Enum))
		for _, v := range prop.Enum {
			if s, ok := v.(string); ok {
				enumValues = append(enumValues, s)
			}
		}
		genaiSchema.Enum = enumValues
	}
	if prop.Items != nil {
		genaiSchema.Items = convertPropertyToGenAI(prop.Items)
	}
	if prop.Properties != nil {
		genaiSchema.Properties = make(map[string]*genai.Schema, len(prop.Properties))
		for name, nested := range prop.Properties {
			genaiSchema.Properties[name] = convertPropertyToGenAI(nested)
		}
	}
	if len(prop.Required) > 0 {
		genaiSchema.Required = prop.Required
	}
	return genaiSchema
}

func genaiType(t string) genai.Type {
	return genai.Type(strings.ToUpper(t))
}
