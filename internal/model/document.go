package model

import "encoding/json"

// Document is a portable-text body: an ordered list of block nodes.
type Document []Block

// Block is one node of a Document. Text blocks use Style, ListItem and
// Children; custom node types such as "image" carry their own fields.
type Block struct {
	Type     string    `json:"_type"`
	Key      string    `json:"_key,omitempty"`
	Style    string    `json:"style,omitempty"`
	ListItem string    `json:"listItem,omitempty"`
	Level    int       `json:"level,omitempty"`
	Children []Span    `json:"children,omitempty"`
	MarkDefs []MarkDef `json:"markDefs,omitempty"`
	Asset    *Asset    `json:"asset,omitempty"`
	Caption  string    `json:"caption,omitempty"`
	Alt      string    `json:"alt,omitempty"`
}

// Span is an inline text run. Marks holds decorator names ("strong", "em")
// or keys into the parent block's MarkDefs.
type Span struct {
	Type  string   `json:"_type"`
	Key   string   `json:"_key,omitempty"`
	Text  string   `json:"text"`
	Marks []string `json:"marks,omitempty"`
}

// MarkDef is an annotation such as a link.
type MarkDef struct {
	Key   string `json:"_key"`
	Type  string `json:"_type"`
	Href  string `json:"href,omitempty"`
	Blank bool   `json:"blank,omitempty"`
}

// Asset references an uploaded image. Ref is set on plain references, ID and
// URL when the query dereferenced the asset.
type Asset struct {
	Ref string `json:"_ref,omitempty"`
	ID  string `json:"_id,omitempty"`
	URL string `json:"url,omitempty"`
}

// UnmarshalJSON decodes node by node and drops nodes that do not decode, so
// one malformed node never loses the rest of the body.
func (d *Document) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		// null or a non-array body is an empty document
		*d = nil
		return nil
	}

	doc := make(Document, 0, len(raw))
	for _, node := range raw {
		var b Block
		if err := json.Unmarshal(node, &b); err != nil {
			continue
		}
		doc = append(doc, b)
	}
	*d = doc
	return nil
}
