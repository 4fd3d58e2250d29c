package frontmatter

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// YAMLMerger patches fields through a parsed YAML view of the header
// block instead of raw text replacement. Key order and comments survive
// (yaml.v3 node trees keep both), but scalar formatting is normalised
// by the encoder. Used when callers want map semantics; duplicate keys
// collapse to one on re-encode.
type YAMLMerger struct{}

// MergeFields parses the header block, sets each update on the mapping
// (create-or-overwrite), and re-encodes it between the original
// delimiters. Content without a block, or with a header that is not a
// YAML mapping, is returned unchanged.
func (YAMLMerger) MergeFields(content []byte, updates []Field) ([]byte, error) {
	start, end, ok := splitHeader(content)
	if !ok {
		return content, nil
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(content[start:end], &doc); err != nil {
		// Malformed header: leave the document untouched.
		return content, nil
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return content, nil
	}
	mapping := doc.Content[0]
	if mapping.Kind != yaml.MappingNode {
		return content, nil
	}

	for _, u := range updates {
		setMapField(mapping, u.Key, u.Value)
	}

	var buf bytes.Buffer
	buf.Grow(len(content) + 64)
	buf.Write(content[:start])

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(mapping); err != nil {
		return nil, fmt.Errorf("frontmatter: encode header: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("frontmatter: encode header: %w", err)
	}

	buf.Write(content[end:])
	return buf.Bytes(), nil
}

// setMapField overwrites the value node for key, or appends a new pair.
func setMapField(mapping *yaml.Node, key, value string) {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			v := mapping.Content[i+1]
			v.Kind = yaml.ScalarNode
			v.Tag = "!!str"
			v.Value = value
			v.Style = 0
			v.Content = nil
			return
		}
	}
	mapping.Content = append(mapping.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value},
	)
}
