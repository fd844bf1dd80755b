// Package toolcall exposes gospatial operations as JSON tool calls for
// agent frameworks.
//
// Values in Params take one of these forms:
//
//	1.5                                  number
//	"x"                                  symbol
//	{"type":"sin","args":[{"type":"sym","name":"x"}]}
//	[v0, v1, v2]                         column
//	[[a, b], [c, d]]                     rows
//
// Expression objects use the sx JSON encoding. Symbols are resolved by
// name in a registry private to the call.
package toolcall

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/njchilds90/gospatial"
	"github.com/njchilds90/gospatial/sx"
)

// ============================================================
// Request / Response
// ============================================================

type Request struct {
	Tool   string                 `json:"tool"`
	Params map[string]interface{} `json:"params"`
}

// Response carries either Result or Error. Symbolic results are encoded
// row by row in Expr; constant results are plain numbers in Result.
type Response struct {
	Result interface{} `json:"result,omitempty"`
	Expr   interface{} `json:"expr,omitempty"`
	String string      `json:"string,omitempty"`
	Error  string      `json:"error,omitempty"`
}

func fail(err error) Response { return Response{Error: err.Error()} }

// ============================================================
// Parameter decoding
// ============================================================

// params decodes request parameters and accumulates every problem so a
// caller sees all bad fields at once.
type params struct {
	raw  map[string]interface{}
	reg  *gospatial.Registry
	errs error
}

func (p *params) err() error { return p.errs }

func (p *params) fail(err error) { p.errs = multierr.Append(p.errs, err) }

func (p *params) get(key string) (interface{}, bool) {
	v, ok := p.raw[key]
	if !ok {
		p.fail(fmt.Errorf("missing param: %s", key))
	}
	return v, ok
}

func (p *params) resolve(name string) *sx.Expr { return p.reg.Symbol(name).Node() }

func (p *params) entry(key string, v interface{}) (*sx.Expr, error) {
	switch x := v.(type) {
	case float64:
		return sx.Const(x), nil
	case bool:
		if x {
			return sx.One(), nil
		}
		return sx.Zero(), nil
	case string:
		if x == "" {
			return nil, fmt.Errorf("param %s: empty symbol name", key)
		}
		return p.resolve(x), nil
	case map[string]interface{}:
		e, err := sx.FromJSON(x, p.resolve)
		if err != nil {
			return nil, fmt.Errorf("param %s: %w", key, err)
		}
		return e, nil
	}
	return nil, fmt.Errorf("param %s: unsupported value %T", key, v)
}

// value decodes a scalar, column or row list into an Expression.
func (p *params) value(key string) *gospatial.Expression {
	v, ok := p.get(key)
	if !ok {
		return nil
	}
	e, err := p.decode(key, v)
	if err != nil {
		p.fail(err)
		return nil
	}
	return e
}

func (p *params) decode(key string, v interface{}) (*gospatial.Expression, error) {
	list, ok := v.([]interface{})
	if !ok {
		e, err := p.entry(key, v)
		if err != nil {
			return nil, err
		}
		return gospatial.FromSX(sx.Scalar(e)), nil
	}
	if len(list) > 0 {
		if _, nested := list[0].([]interface{}); nested {
			rows := make([][]any, len(list))
			for i, r := range list {
				row, ok := r.([]interface{})
				if !ok {
					return nil, fmt.Errorf("param %s[%d] must be an array", key, i)
				}
				rows[i] = make([]any, len(row))
				for j, c := range row {
					e, err := p.entry(fmt.Sprintf("%s[%d][%d]", key, i, j), c)
					if err != nil {
						return nil, err
					}
					rows[i][j] = e
				}
			}
			return gospatial.ExpressionFrom(rows)
		}
	}
	col := make([]any, len(list))
	for i, c := range list {
		e, err := p.entry(fmt.Sprintf("%s[%d]", key, i), c)
		if err != nil {
			return nil, err
		}
		col[i] = e
	}
	return gospatial.ExpressionFrom(col)
}

func (p *params) symbols(key string) []*gospatial.Symbol {
	v, ok := p.get(key)
	if !ok {
		return nil
	}
	raw, ok := v.([]interface{})
	if !ok {
		p.fail(fmt.Errorf("param %s must be array", key))
		return nil
	}
	out := make([]*gospatial.Symbol, len(raw))
	for i, r := range raw {
		s, ok := r.(string)
		if !ok || s == "" {
			p.fail(fmt.Errorf("param %s[%d] must be a symbol name", key, i))
			return nil
		}
		out[i] = p.reg.Symbol(s)
	}
	return out
}

func (p *params) numbers(key string) map[string]float64 {
	v, ok := p.raw[key]
	if !ok {
		return nil
	}
	raw, ok := v.(map[string]interface{})
	if !ok {
		p.fail(fmt.Errorf("param %s must be an object of numbers", key))
		return nil
	}
	out := make(map[string]float64, len(raw))
	for name, n := range raw {
		f, ok := n.(float64)
		if !ok {
			p.fail(fmt.Errorf("param %s.%s must be a number", key, name))
			continue
		}
		out[name] = f
	}
	return out
}

// inputs decodes a list of argument vectors, one per batch entry.
func (p *params) inputs(key string) [][][]float64 {
	v, ok := p.get(key)
	if !ok {
		return nil
	}
	raw, ok := v.([]interface{})
	if !ok {
		p.fail(fmt.Errorf("param %s must be array", key))
		return nil
	}
	out := make([][][]float64, len(raw))
	for i, r := range raw {
		row, ok := r.([]interface{})
		if !ok {
			p.fail(fmt.Errorf("param %s[%d] must be array", key, i))
			return nil
		}
		args := make([]float64, len(row))
		for j, c := range row {
			f, ok := c.(float64)
			if !ok {
				p.fail(fmt.Errorf("param %s[%d][%d] must be a number", key, i, j))
				return nil
			}
			args[j] = f
		}
		out[i] = [][]float64{args}
	}
	return out
}

// ============================================================
// Result encoding
// ============================================================

func numeric(m *sx.Matrix) ([][]float64, bool) {
	out := make([][]float64, m.Rows())
	for i := range out {
		out[i] = make([]float64, m.Cols())
		for j := range out[i] {
			v, ok := m.Get(i, j).Eval()
			if !ok {
				return nil, false
			}
			out[i][j] = v
		}
	}
	return out, true
}

func encode(m *sx.Matrix) [][]map[string]interface{} {
	out := make([][]map[string]interface{}, m.Rows())
	for i := range out {
		out[i] = make([]map[string]interface{}, m.Cols())
		for j := range out[i] {
			out[i][j] = sx.ToJSONMap(m.Get(i, j))
		}
	}
	return out
}

// flat returns a column's entries as a list and a scalar as itself.
func flat(rows [][]float64) interface{} {
	if len(rows) == 1 && len(rows[0]) == 1 {
		return rows[0][0]
	}
	if len(rows) > 0 && len(rows[0]) == 1 {
		col := make([]float64, len(rows))
		for i, r := range rows {
			col[i] = r[0]
		}
		return col
	}
	return rows
}

// result encodes v numerically when it is constant and symbolically
// otherwise.
func result(v gospatial.SymbolicValue) interface{} {
	if rows, ok := numeric(v.SX()); ok {
		return flat(rows)
	}
	return encode(v.SX())
}

// xyz drops the homogeneous entry of a point or vector.
func xyz(v gospatial.Vec3) *gospatial.Expression {
	return gospatial.Expr([]any{v.X(), v.Y(), v.Z()})
}

func respond(v gospatial.SymbolicValue) Response {
	m := v.SX()
	if rows, ok := numeric(m); ok {
		return Response{Result: flat(rows), String: v.String()}
	}
	return Response{Expr: encode(m), String: v.String()}
}

// ============================================================
// Handler
// ============================================================

// Handler dispatches tool calls. The zero value is not usable; use New.
type Handler struct {
	log     *zap.Logger
	workers int
}

type Option func(*Handler)

// WithWorkers bounds the parallelism of evaluate_batch. Zero or less
// means GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(h *Handler) { h.workers = n }
}

func New(log *zap.Logger, opts ...Option) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	h := &Handler{log: log.Named("toolcall")}
	for _, o := range opts {
		o(h)
	}
	return h
}

var defaultHandler = New(nil)

// Handle runs req with a handler that does not log.
func Handle(req Request) Response { return defaultHandler.Handle(context.Background(), req) }

// Handle runs one tool call. Panics raised by misuse of the geometry API
// are reported as errors.
func (h *Handler) Handle(ctx context.Context, req Request) (resp Response) {
	defer func() {
		if rec := recover(); rec != nil {
			h.log.Error("tool panicked",
				zap.String("tool", req.Tool),
				zap.Any("panic", rec),
				zap.ByteString("stack", debug.Stack()))
			resp = Response{Error: fmt.Sprintf("%s: %v", req.Tool, rec)}
		}
	}()
	resp = h.dispatch(ctx, req)
	if resp.Error != "" {
		h.log.Debug("tool failed", zap.String("tool", req.Tool), zap.String("error", resp.Error))
	} else {
		h.log.Debug("tool ok", zap.String("tool", req.Tool))
	}
	return resp
}

func (h *Handler) dispatch(ctx context.Context, req Request) Response {
	p := &params{raw: req.Params, reg: gospatial.NewRegistry()}

	switch req.Tool {
	case "evaluate":
		e := p.value("expr")
		values := p.numbers("values")
		if err := p.err(); err != nil {
			return fail(err)
		}
		f, err := gospatial.Compile(e, gospatial.WithName("evaluate"))
		if err != nil {
			return fail(err)
		}
		out, err := f.Call(values)
		if err != nil {
			return fail(err)
		}
		rows, cols := f.Shape()
		grid := make([][]float64, rows)
		for i := range grid {
			grid[i] = append([]float64(nil), out[i*cols:(i+1)*cols]...)
		}
		return Response{Result: flat(grid)}

	case "evaluate_batch":
		e := p.value("expr")
		syms := p.symbols("vars")
		inputs := p.inputs("inputs")
		if err := p.err(); err != nil {
			return fail(err)
		}
		f, err := gospatial.Compile(e, gospatial.WithName("evaluate_batch"), gospatial.WithParameters(syms))
		if err != nil {
			return fail(err)
		}
		out, err := gospatial.EvaluateBatch(ctx, f, inputs, h.workers)
		if err != nil {
			return fail(err)
		}
		return Response{Result: out}

	case "jacobian":
		e := p.value("expr")
		syms := p.symbols("vars")
		if err := p.err(); err != nil {
			return fail(err)
		}
		return respond(gospatial.Jacobian(e, syms))

	case "free_symbols":
		e := p.value("expr")
		if err := p.err(); err != nil {
			return fail(err)
		}
		syms := p.reg.FreeSymbols(e)
		names := make([]string, len(syms))
		for i, s := range syms {
			names[i] = s.Name()
		}
		return Response{Result: names}

	case "to_string":
		e := p.value("expr")
		if err := p.err(); err != nil {
			return fail(err)
		}
		return Response{String: e.String()}

	case "rpy_to_quaternion":
		roll, pitch, yaw := p.value("roll"), p.value("pitch"), p.value("yaw")
		if err := p.err(); err != nil {
			return fail(err)
		}
		return respond(gospatial.QuaternionFromRPY(roll, pitch, yaw))

	case "quaternion_to_rpy":
		q := p.quaternion("quaternion")
		if err := p.err(); err != nil {
			return fail(err)
		}
		roll, pitch, yaw := q.ToRPY()
		return respond(gospatial.Expr([]any{roll, pitch, yaw}))

	case "axis_angle_to_quaternion":
		axis := p.vector("axis")
		angle := p.value("angle")
		if err := p.err(); err != nil {
			return fail(err)
		}
		return respond(gospatial.QuaternionFromAxisAngle(axis.Normalized(), angle))

	case "quaternion_to_axis_angle":
		q := p.quaternion("quaternion")
		if err := p.err(); err != nil {
			return fail(err)
		}
		axis, angle := q.ToAxisAngle()
		return Response{
			Result: map[string]interface{}{"axis": result(xyz(axis)), "angle": result(angle)},
			String: fmt.Sprintf("axis=%s angle=%s", axis, angle),
		}

	case "quaternion_multiply":
		a, b := p.quaternion("a"), p.quaternion("b")
		if err := p.err(); err != nil {
			return fail(err)
		}
		return respond(a.Multiply(b))

	case "transform_point":
		t := p.transform("transform")
		pt := p.point("point")
		if err := p.err(); err != nil {
			return fail(err)
		}
		return respond(xyz(t.DotPoint(pt)))

	case "invert_transform":
		t := p.transform("transform")
		if err := p.err(); err != nil {
			return fail(err)
		}
		return respond(t.Inverse())

	case "compose_transforms":
		a, b := p.transform("a"), p.transform("b")
		if err := p.err(); err != nil {
			return fail(err)
		}
		return respond(a.DotTransformation(b))

	case "distance_point_to_segment":
		pt, start, end := p.point("point"), p.point("start"), p.point("end")
		if err := p.err(); err != nil {
			return fail(err)
		}
		d, nearest := gospatial.DistancePointToLineSegment(pt, start, end)
		return Response{
			Result: map[string]interface{}{"distance": result(d), "nearest": result(xyz(nearest))},
			String: d.String(),
		}

	case "mcp_spec":
		return Response{Result: Schema()}
	}

	return fail(fmt.Errorf("unknown tool: %s", req.Tool))
}

// ============================================================
// Geometric parameters
// ============================================================

func (p *params) point(key string) *gospatial.Point3 {
	e := p.value(key)
	if e == nil {
		return nil
	}
	pt, err := gospatial.Point3From(e)
	if err != nil {
		p.fail(fmt.Errorf("param %s: %w", key, err))
	}
	return pt
}

func (p *params) vector(key string) *gospatial.Vector3 {
	e := p.value(key)
	if e == nil {
		return nil
	}
	v, err := gospatial.Vector3From(e)
	if err != nil {
		p.fail(fmt.Errorf("param %s: %w", key, err))
	}
	return v
}

func (p *params) quaternion(key string) *gospatial.Quaternion {
	e := p.value(key)
	if e == nil {
		return nil
	}
	q, err := gospatial.QuaternionFrom(e)
	if err != nil {
		p.fail(fmt.Errorf("param %s: %w", key, err))
	}
	return q
}

func (p *params) transform(key string) *gospatial.TransformationMatrix {
	e := p.value(key)
	if e == nil {
		return nil
	}
	t, err := gospatial.TransformationMatrixFrom(e)
	if err != nil {
		p.fail(fmt.Errorf("param %s: %w", key, err))
	}
	return t
}

// ============================================================
// Tool schema
// ============================================================

// Schema returns the tool schema in the shape agent frameworks register.
func Schema() string {
	tools := []map[string]interface{}{
		ts("evaluate", "Evaluate an expression. values maps symbol names to numbers", []string{"expr"}, map[string]string{"expr": "object", "values": "object"}),
		ts("evaluate_batch", "Evaluate expr at many points. inputs[i] lists values for vars in order", []string{"expr", "vars", "inputs"}, map[string]string{"expr": "object", "vars": "array", "inputs": "array"}),
		ts("jacobian", "Jacobian of expr with respect to vars (string[])", []string{"expr", "vars"}, map[string]string{"expr": "object", "vars": "array"}),
		ts("free_symbols", "Return free symbol names in order of first appearance", []string{"expr"}, map[string]string{"expr": "object"}),
		ts("to_string", "Render an expression as text", []string{"expr"}, map[string]string{"expr": "object"}),
		ts("rpy_to_quaternion", "Quaternion (x,y,z,w) from roll, pitch, yaw", []string{"roll", "pitch", "yaw"}, map[string]string{"roll": "number", "pitch": "number", "yaw": "number"}),
		ts("quaternion_to_rpy", "Roll, pitch, yaw of a quaternion [x,y,z,w]", []string{"quaternion"}, map[string]string{"quaternion": "array"}),
		ts("axis_angle_to_quaternion", "Quaternion from an axis (normalized first) and an angle", []string{"axis", "angle"}, map[string]string{"axis": "array", "angle": "number"}),
		ts("quaternion_to_axis_angle", "Axis and angle of a quaternion", []string{"quaternion"}, map[string]string{"quaternion": "array"}),
		ts("quaternion_multiply", "Hamilton product a*b", []string{"a", "b"}, map[string]string{"a": "array", "b": "array"}),
		ts("transform_point", "Apply a 4x4 transform to a point [x,y,z]", []string{"transform", "point"}, map[string]string{"transform": "array", "point": "array"}),
		ts("invert_transform", "Inverse of a rigid 4x4 transform", []string{"transform"}, map[string]string{"transform": "array"}),
		ts("compose_transforms", "Product a*b of two 4x4 transforms", []string{"a", "b"}, map[string]string{"a": "array", "b": "array"}),
		ts("distance_point_to_segment", "Distance from point to the segment start-end and the nearest point", []string{"point", "start", "end"}, map[string]string{"point": "array", "start": "array", "end": "array"}),
		ts("mcp_spec", "Return this tool schema", []string{}, map[string]string{}),
	}
	spec := map[string]interface{}{"tools": tools}
	b, _ := json.MarshalIndent(spec, "", "  ")
	return string(b)
}

func ts(name, description string, required []string, props map[string]string) map[string]interface{} {
	properties := map[string]interface{}{}
	for k, typ := range props {
		properties[k] = map[string]interface{}{"type": typ}
	}
	return map[string]interface{}{
		"name":        name,
		"description": description,
		"inputSchema": map[string]interface{}{
			"type":       "object",
			"properties": properties,
			"required":   required,
		},
	}
}
