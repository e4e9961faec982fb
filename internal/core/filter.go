package core

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ParseGroups decodes a filter document (YAML or JSON) into groups, keeping
// the key order of every mapping. The document is either one mapping or a
// list of mappings. Each key maps to a bare value (scalar, null or list) or
// to a condition object, e.g.
//
//	[{age: {op: ">", value: 18, or_equal: true}, name: null}, {status: [active, pending]}]
func ParseGroups(data []byte) ([]Group, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse filter: %w", err)
	}
	if root.Kind == 0 {
		return nil, nil
	}
	doc := &root
	if doc.Kind == yaml.DocumentNode {
		if len(doc.Content) == 0 {
			return nil, nil
		}
		doc = doc.Content[0]
	}
	switch doc.Kind {
	case yaml.MappingNode:
		g, err := parseGroup(doc)
		if err != nil {
			return nil, err
		}
		return []Group{g}, nil
	case yaml.SequenceNode:
		groups := make([]Group, 0, len(doc.Content))
		for i, item := range doc.Content {
			if item.Kind != yaml.MappingNode {
				return nil, fmt.Errorf("parse filter: group %d: expected a mapping, got %s", i, item.Tag)
			}
			g, err := parseGroup(item)
			if err != nil {
				return nil, fmt.Errorf("parse filter: group %d: %w", i, err)
			}
			groups = append(groups, g)
		}
		return groups, nil
	case yaml.ScalarNode:
		if doc.Tag == "!!null" {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("parse filter: line %d: expected a mapping or a list", doc.Line)
}

func parseGroup(n *yaml.Node) (Group, error) {
	g := make(Group, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		field := n.Content[i].Value
		cond, err := parseCond(field, n.Content[i+1])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", field, err)
		}
		g = append(g, cond)
	}
	return g, nil
}

func parseCond(field string, n *yaml.Node) (Cond, error) {
	if n.Kind != yaml.MappingNode {
		v, err := nodeValue(n)
		if err != nil {
			return Cond{}, err
		}
		return Eq(field, v), nil
	}
	cond := Cond{Field: field, Value: Skip}
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i].Value, n.Content[i+1]
		var err error
		switch key {
		case "value":
			cond.Value, err = nodeValue(val)
		case "op":
			err = val.Decode(&cond.Op)
		case "logic":
			err = val.Decode(&cond.Logic)
		case "not":
			err = val.Decode(&cond.Not)
		case "or_null":
			err = val.Decode(&cond.OrNull)
		case "or_equal":
			err = val.Decode(&cond.OrEqual)
		default:
			return Cond{}, fmt.Errorf("line %d: unknown key %q", n.Content[i].Line, key)
		}
		if err != nil {
			return Cond{}, fmt.Errorf("%s: %w", key, err)
		}
	}
	return cond, nil
}

func nodeValue(n *yaml.Node) (any, error) {
	if n.Kind == yaml.ScalarNode && n.Tag == "!!null" {
		return nil, nil
	}
	var v any
	if err := n.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}
