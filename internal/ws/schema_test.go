package ws

import (
	"os"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"puzzle-party/internal/game"
)

func TestWSProtocolSchema(t *testing.T) {
	compiler := jsonschema.NewCompiler()
	data, err := os.ReadFile("../../api/schema/ws_v1.schema.json")
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}
	if err := compiler.AddResource("ws_v1.schema.json", strings.NewReader(string(data))); err != nil {
		t.Fatalf("add resource: %v", err)
	}
	schema, err := compiler.Compile("ws_v1.schema.json")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	encoded := func(v any) string {
		b, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal %T: %v", v, err)
		}
		return string(b)
	}
	valid := []string{
		`{"type":"create","request_id":"req_1","variant":"countdown","name":"Ada","settings":{"rounds":5,"round_seconds":30}}`,
		`{"type":"join","code":"ABC234","name":"Bob"}`,
		`{"type":"reconnect","player_id":"01J0000000000000000000000","token":"t"}`,
		`{"type":"pick","choice":"2"}`,
		`{"type":"submit","request_id":"req_2","answer":"(100+25)*4"}`,
		encoded(ActionResult{Type: "action_result", ProtocolVersion: game.ProtocolVersion, RequestID: "req_1", Action: "create", Ok: true, Data: map[string]string{"code": "ABC234"}}),
		encoded(ActionResult{Type: "action_result", ProtocolVersion: game.ProtocolVersion, Action: "submit", Error: "invalid_answer", Detail: "12 is not one of your numbers"}),
		encoded(EventFrame{Type: "event", ProtocolVersion: game.ProtocolVersion, Event: game.EventTick, Room: "ABC234", ServerTS: 1, Data: game.TickEvent{Phase: game.PhaseActiveRound, TimeLeft: 9}}),
		encoded(EventFrame{Type: "event", ProtocolVersion: game.ProtocolVersion, Event: game.EventRoundResolved, EventID: "12", Room: "ABC234", ServerTS: 1, Data: game.RoundResolvedEvent{Round: 1, Reason: "timeout"}}),
	}
	invalid := []string{
		`{"type":"fold"}`,
		`{"type":"create","name":"Ada"}`,
		`{"type":"submit"}`,
		`{"type":"action_result","protocol_version":"1.0","action":"start","ok":false}`,
		`{"type":"event","protocol_version":"1.0","event":"tick","room":"abc","server_ts":1,"data":null}`,
	}

	for i, s := range valid {
		var v any
		if err := json.Unmarshal([]byte(s), &v); err != nil {
			t.Fatalf("unmarshal sample %d: %v", i, err)
		}
		if err := schema.Validate(v); err != nil {
			t.Fatalf("schema validate sample %d: %v", i, err)
		}
	}
	for i, s := range invalid {
		var v any
		if err := json.Unmarshal([]byte(s), &v); err != nil {
			t.Fatalf("unmarshal invalid sample %d: %v", i, err)
		}
		if err := schema.Validate(v); err == nil {
			t.Fatalf("invalid sample %d passed validation: %s", i, s)
		}
	}
}
