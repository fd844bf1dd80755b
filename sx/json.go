package sx

import (
	"encoding/json"
	"fmt"
)

// ============================================================
// JSON Serialization
// ============================================================

// ToJSONMap encodes e as nested maps:
//
//	{"type":"const","value":1.5}
//	{"type":"sym","name":"x"}
//	{"type":"sin","args":[...]}
//
// An operation node used more than once is written in full at its first
// use with an "id", and every later use is {"type":"ref","id":N}.
func ToJSONMap(e *Expr) map[string]interface{} {
	uses := make(map[*Expr]int)
	countUses(e, uses)
	enc := &jsonEncoder{uses: uses, ids: make(map[*Expr]int)}
	return enc.encode(e)
}

func countUses(e *Expr, uses map[*Expr]int) {
	uses[e]++
	if uses[e] > 1 {
		return
	}
	for _, a := range e.args {
		countUses(a, uses)
	}
}

type jsonEncoder struct {
	uses map[*Expr]int
	ids  map[*Expr]int
}

func (j *jsonEncoder) encode(e *Expr) map[string]interface{} {
	switch e.op {
	case OpConst:
		return map[string]interface{}{"type": "const", "value": e.val}
	case OpSym:
		return map[string]interface{}{"type": "sym", "name": e.name}
	}
	if id, ok := j.ids[e]; ok {
		return map[string]interface{}{"type": "ref", "id": id}
	}
	args := make([]interface{}, len(e.args))
	for i, a := range e.args {
		args[i] = j.encode(a)
	}
	out := map[string]interface{}{"type": opNames[e.op], "args": args}
	if j.uses[e] > 1 {
		id := len(j.ids)
		j.ids[e] = id
		out["id"] = id
	}
	return out
}

func ToJSON(e *Expr) (string, error) {
	b, err := json.Marshal(ToJSONMap(e))
	return string(b), err
}

// FromJSON decodes the ToJSONMap form. resolve maps symbol names to
// symbol nodes so that callers control interning.
func FromJSON(data map[string]interface{}, resolve func(name string) *Expr) (*Expr, error) {
	dec := &jsonDecoder{resolve: resolve, nodes: make(map[int]*Expr)}
	return dec.decode(data)
}

type jsonDecoder struct {
	resolve func(name string) *Expr
	nodes   map[int]*Expr
}

func jsonID(v interface{}) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case float64:
		if x == float64(int(x)) {
			return int(x), true
		}
	}
	return 0, false
}

func (d *jsonDecoder) decode(data map[string]interface{}) (*Expr, error) {
	if data == nil {
		return nil, fmt.Errorf("expression must be an object")
	}
	typAny, ok := data["type"]
	if !ok {
		return nil, fmt.Errorf("missing 'type' field")
	}
	typ, ok := typAny.(string)
	if !ok || typ == "" {
		return nil, fmt.Errorf("field 'type' must be a non-empty string")
	}

	switch typ {
	case "const":
		switch v := data["value"].(type) {
		case float64:
			return Const(v), nil
		case nil:
			return nil, fmt.Errorf("const: missing 'value'")
		default:
			return nil, fmt.Errorf("const: 'value' must be a number")
		}

	case "sym":
		name, ok := data["name"].(string)
		if !ok || name == "" {
			return nil, fmt.Errorf("sym: 'name' must be a non-empty string")
		}
		return d.resolve(name), nil

	case "ref":
		id, ok := jsonID(data["id"])
		if !ok {
			return nil, fmt.Errorf("ref: 'id' must be an integer")
		}
		n, ok := d.nodes[id]
		if !ok {
			return nil, fmt.Errorf("ref: id %d is not defined before use", id)
		}
		return n, nil
	}

	op, ok := OpByName(typ)
	if !ok {
		return nil, fmt.Errorf("unknown expression type: %s", typ)
	}
	raw, ok := data["args"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("%s: 'args' must be an array", typ)
	}
	if len(raw) != op.Arity() {
		return nil, fmt.Errorf("%s: want %d args, got %d", typ, op.Arity(), len(raw))
	}
	args := make([]*Expr, len(raw))
	for i, r := range raw {
		m, ok := r.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%s: args[%d] must be an object", typ, i)
		}
		a, err := d.decode(m)
		if err != nil {
			return nil, fmt.Errorf("%s: args[%d]: %w", typ, i, err)
		}
		args[i] = a
	}
	e := Apply(op, args...)
	if idAny, ok := data["id"]; ok {
		id, ok := jsonID(idAny)
		if !ok {
			return nil, fmt.Errorf("%s: 'id' must be an integer", typ)
		}
		if _, dup := d.nodes[id]; dup {
			return nil, fmt.Errorf("%s: id %d defined twice", typ, id)
		}
		d.nodes[id] = e
	}
	return e, nil
}
