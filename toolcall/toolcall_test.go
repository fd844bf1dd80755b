package toolcall_test

import (
	"context"
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/njchilds90/gospatial/toolcall"
)

type obj = map[string]interface{}

func sym(name string) obj { return obj{"type": "sym", "name": name} }

func num(v float64) obj { return obj{"type": "const", "value": v} }

func op(name string, args ...interface{}) obj { return obj{"type": name, "args": args} }

func call(t *testing.T, tool string, params obj) toolcall.Response {
	t.Helper()
	resp := toolcall.Handle(toolcall.Request{Tool: tool, Params: params})
	require.Empty(t, resp.Error)
	return resp
}

func floats(t *testing.T, v interface{}) []float64 {
	t.Helper()
	f, ok := v.([]float64)
	require.True(t, ok, "expected []float64, got %T", v)
	return f
}

// ============================================================
// Expression tools
// ============================================================

func TestHandle_Evaluate(t *testing.T) {
	expr := op("add", sym("x"), op("mul", num(2), sym("y")))
	resp := call(t, "evaluate", obj{"expr": expr, "values": obj{"x": 1.0, "y": 3.0}})
	assert.Equal(t, 7.0, resp.Result)
}

func TestHandle_EvaluateColumn(t *testing.T) {
	expr := []interface{}{"x", 2.0, op("sin", sym("x"))}
	resp := call(t, "evaluate", obj{"expr": expr, "values": obj{"x": 0.0}})
	assert.Equal(t, []float64{0, 2, 0}, floats(t, resp.Result))
}

func TestHandle_EvaluateFromJSON(t *testing.T) {
	raw := `{"tool":"evaluate","params":{"expr":{"type":"mul","args":[{"type":"sym","name":"x"},{"type":"sym","name":"x"}]},"values":{"x":3}}}`
	var req toolcall.Request
	require.NoError(t, json.Unmarshal([]byte(raw), &req))
	resp := toolcall.Handle(req)
	require.Empty(t, resp.Error)
	assert.Equal(t, 9.0, resp.Result)
}

func TestHandle_EvaluateMissingValue(t *testing.T) {
	resp := toolcall.Handle(toolcall.Request{Tool: "evaluate", Params: obj{"expr": "x"}})
	assert.Contains(t, resp.Error, "missing argument")
	assert.Contains(t, resp.Error, `"x"`)
}

func TestHandle_EvaluateBatch(t *testing.T) {
	h := toolcall.New(nil, toolcall.WithWorkers(2))
	resp := h.Handle(context.Background(), toolcall.Request{Tool: "evaluate_batch", Params: obj{
		"expr":   []interface{}{op("mul", sym("x"), sym("y")), sym("x")},
		"vars":   []interface{}{"x", "y"},
		"inputs": []interface{}{[]interface{}{1.0, 2.0}, []interface{}{3.0, 4.0}, []interface{}{5.0, 6.0}},
	}})
	require.Empty(t, resp.Error)
	assert.Equal(t, [][]float64{{2, 1}, {12, 3}, {30, 5}}, resp.Result)

	resp = h.Handle(context.Background(), toolcall.Request{Tool: "evaluate_batch", Params: obj{
		"expr":   sym("x"),
		"vars":   []interface{}{"x"},
		"inputs": []interface{}{[]interface{}{1.0, 2.0}},
	}})
	assert.Contains(t, resp.Error, "length mismatch")
}

func TestHandle_Jacobian(t *testing.T) {
	resp := call(t, "jacobian", obj{"expr": []interface{}{op("mul", num(2), sym("x"))}, "vars": []interface{}{"x"}})
	assert.Equal(t, 2.0, resp.Result)

	resp = call(t, "jacobian", obj{
		"expr": []interface{}{op("mul", sym("x"), sym("y")), "x"},
		"vars": []interface{}{"x", "y"},
	})
	assert.Nil(t, resp.Result)
	rows, ok := resp.Expr.([][]map[string]interface{})
	require.True(t, ok, "got %T", resp.Expr)
	require.Len(t, rows, 2)
	assert.Equal(t, sym("y"), obj(rows[0][0]))
	assert.Equal(t, sym("x"), obj(rows[0][1]))
}

func TestHandle_FreeSymbols(t *testing.T) {
	resp := call(t, "free_symbols", obj{"expr": op("add", sym("b"), op("sin", sym("a")))})
	assert.Equal(t, []string{"b", "a"}, resp.Result)
}

func TestHandle_ToString(t *testing.T) {
	resp := call(t, "to_string", obj{"expr": op("sin", sym("x"))})
	assert.Equal(t, "sin(x)", resp.String)
}

// ============================================================
// Geometry tools
// ============================================================

func TestHandle_RPYToQuaternion(t *testing.T) {
	resp := call(t, "rpy_to_quaternion", obj{"roll": 0.0, "pitch": 0.0, "yaw": math.Pi / 2})
	s := math.Sqrt2 / 2
	assert.InDeltaSlice(t, []float64{0, 0, s, s}, floats(t, resp.Result), 1e-12)
}

func TestHandle_RPYToQuaternionSymbolic(t *testing.T) {
	resp := call(t, "rpy_to_quaternion", obj{"roll": "r", "pitch": 0.0, "yaw": 0.0})
	assert.Nil(t, resp.Result)
	assert.NotNil(t, resp.Expr)
	assert.Contains(t, resp.String, "r")
}

func TestHandle_QuaternionToRPY(t *testing.T) {
	s := math.Sqrt2 / 2
	resp := call(t, "quaternion_to_rpy", obj{"quaternion": []interface{}{0.0, 0.0, s, s}})
	assert.InDeltaSlice(t, []float64{0, 0, math.Pi / 2}, floats(t, resp.Result), 1e-9)
}

func TestHandle_AxisAngle(t *testing.T) {
	resp := call(t, "axis_angle_to_quaternion", obj{"axis": []interface{}{0.0, 0.0, 2.0}, "angle": math.Pi})
	assert.InDeltaSlice(t, []float64{0, 0, 1, 0}, floats(t, resp.Result), 1e-12)

	resp = call(t, "quaternion_to_axis_angle", obj{"quaternion": []interface{}{0.0, 0.0, 1.0, 0.0}})
	out, ok := resp.Result.(map[string]interface{})
	require.True(t, ok)
	assert.InDeltaSlice(t, []float64{0, 0, 1}, floats(t, out["axis"]), 1e-12)
	assert.InDelta(t, math.Pi, out["angle"], 1e-12)
}

func TestHandle_QuaternionMultiply(t *testing.T) {
	resp := call(t, "quaternion_multiply", obj{
		"a": []interface{}{0.0, 0.0, 0.0, 1.0},
		"b": []interface{}{1.0, 0.0, 0.0, 0.0},
	})
	assert.InDeltaSlice(t, []float64{1, 0, 0, 0}, floats(t, resp.Result), 1e-12)
}

func translation(x, y, z float64) []interface{} {
	return []interface{}{
		[]interface{}{1.0, 0.0, 0.0, x},
		[]interface{}{0.0, 1.0, 0.0, y},
		[]interface{}{0.0, 0.0, 1.0, z},
		[]interface{}{0.0, 0.0, 0.0, 1.0},
	}
}

func TestHandle_Transforms(t *testing.T) {
	resp := call(t, "transform_point", obj{"transform": translation(1, 2, 3), "point": []interface{}{1.0, 1.0, 1.0}})
	assert.InDeltaSlice(t, []float64{2, 3, 4}, floats(t, resp.Result), 1e-12)

	resp = call(t, "invert_transform", obj{"transform": translation(1, 2, 3)})
	rows, ok := resp.Result.([][]float64)
	require.True(t, ok, "got %T", resp.Result)
	assert.InDeltaSlice(t, []float64{1, 0, 0, -1}, rows[0], 1e-12)
	assert.InDeltaSlice(t, []float64{0, 0, 1, -3}, rows[2], 1e-12)

	resp = call(t, "compose_transforms", obj{"a": translation(1, 2, 3), "b": translation(-1, 1, 0)})
	rows, ok = resp.Result.([][]float64)
	require.True(t, ok)
	assert.InDelta(t, 0.0, rows[0][3], 1e-12)
	assert.InDelta(t, 3.0, rows[1][3], 1e-12)
	assert.InDelta(t, 3.0, rows[2][3], 1e-12)
}

func TestHandle_DistancePointToSegment(t *testing.T) {
	resp := call(t, "distance_point_to_segment", obj{
		"point": []interface{}{0.0, 1.0, 0.0},
		"start": []interface{}{-1.0, 0.0, 0.0},
		"end":   []interface{}{1.0, 0.0, 0.0},
	})
	out, ok := resp.Result.(map[string]interface{})
	require.True(t, ok)
	assert.InDelta(t, 1.0, out["distance"], 1e-12)
	assert.InDeltaSlice(t, []float64{0, 0, 0}, floats(t, out["nearest"]), 1e-12)
}

// ============================================================
// Errors
// ============================================================

func TestHandle_ReportsEveryBadParam(t *testing.T) {
	resp := toolcall.Handle(toolcall.Request{Tool: "transform_point", Params: obj{}})
	assert.Contains(t, resp.Error, "missing param: transform")
	assert.Contains(t, resp.Error, "missing param: point")
}

func TestHandle_ShapeError(t *testing.T) {
	resp := toolcall.Handle(toolcall.Request{Tool: "quaternion_multiply", Params: obj{
		"a": []interface{}{1.0, 2.0, 3.0},
		"b": []interface{}{0.0, 0.0, 0.0, 1.0},
	}})
	assert.Contains(t, resp.Error, "4x1")
}

func TestHandle_BadExpression(t *testing.T) {
	resp := toolcall.Handle(toolcall.Request{Tool: "to_string", Params: obj{"expr": obj{"type": "nope"}}})
	assert.Contains(t, resp.Error, "unknown expression type")
}

func TestHandle_PanicBecomesError(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	h := toolcall.New(zap.New(core))
	resp := h.Handle(context.Background(), toolcall.Request{Tool: "rpy_to_quaternion", Params: obj{
		"roll":  []interface{}{1.0, 2.0},
		"pitch": 0.0,
		"yaw":   0.0,
	}})
	assert.Contains(t, resp.Error, "rpy_to_quaternion")
	assert.Equal(t, 1, logs.FilterMessage("tool panicked").Len())
}

func TestHandle_UnknownTool(t *testing.T) {
	resp := toolcall.Handle(toolcall.Request{Tool: "nonexistent", Params: obj{}})
	assert.Equal(t, "unknown tool: nonexistent", resp.Error)
}

func TestSchema(t *testing.T) {
	var m struct {
		Tools []struct {
			Name string `json:"name"`
		} `json:"tools"`
	}
	require.NoError(t, json.Unmarshal([]byte(toolcall.Schema()), &m))
	names := make([]string, len(m.Tools))
	for i, tool := range m.Tools {
		names[i] = tool.Name
	}
	assert.Contains(t, names, "evaluate")
	assert.Contains(t, names, "distance_point_to_segment")
	assert.Contains(t, names, "mcp_spec")

	resp := call(t, "mcp_spec", obj{})
	assert.Equal(t, toolcall.Schema(), resp.Result)
}
