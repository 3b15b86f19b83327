package loader

import (
	"testing"

	lua "github.com/yuin/gopher-lua"

	"github.com/nathoo/quantumroom/types"
)

// newTestVM creates a sandboxed Lua VM with the API registered and a fresh collector.
func newTestVM() (*lua.LState, *collector) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibs(L)
	sandbox(L)
	coll := &collector{}
	registerAPI(L, coll)
	return L, coll
}

func TestCompileGame(t *testing.T) {
	L, coll := newTestVM()
	defer L.Close()

	if err := L.DoString(`Game { title = "Lab", author = "A", version = "2.0", intro = "Hi" }`); err != nil {
		t.Fatal(err)
	}
	got := compileGame(coll.game)
	want := types.GameDef{Title: "Lab", Author: "A", Version: "2.0", Intro: "Hi"}
	if got != want {
		t.Errorf("compileGame = %+v, want %+v", got, want)
	}
}

func TestCompile_NoGame(t *testing.T) {
	_, _, err := compile(&collector{})
	if err == nil {
		t.Fatal("expected error without Game{}")
	}
}

func TestChoiceConstructor_TagsID(t *testing.T) {
	L, _ := newTestVM()
	defer L.Close()

	if err := L.DoString(`return Choice "tunnel" { text = "Tunnel" }`); err != nil {
		t.Fatal(err)
	}
	tbl, ok := L.Get(-1).(*lua.LTable)
	if !ok {
		t.Fatalf("Choice returned %s", L.Get(-1).Type())
	}
	ch := compileChoice(tbl)
	if ch.ID != "tunnel" || ch.Text != "Tunnel" {
		t.Errorf("choice = %+v", ch)
	}
}

func TestCompileOutcome(t *testing.T) {
	L, _ := newTestVM()
	defer L.Close()

	tests := []struct {
		name string
		src  string
		want types.Outcome
	}{
		{
			name: "short keys",
			src:  `return Outcome { p = 0.25, result = "partial", text = "Meh.", next = "continue", time_bonus = 10 }`,
			want: types.Outcome{Probability: 0.25, Result: types.ResultPartial, Text: "Meh.", NextAction: types.ActionContinue, TimeBonus: 10},
		},
		{
			name: "long keys",
			src:  `return Outcome { probability = 0.75, result = "success", text = "Yes.", next_action = "advance", bonus = "quantum-master" }`,
			want: types.Outcome{Probability: 0.75, Result: types.ResultSuccess, Text: "Yes.", NextAction: types.ActionAdvance, Bonus: "quantum-master"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := L.DoString(tt.src); err != nil {
				t.Fatal(err)
			}
			tbl := L.Get(-1).(*lua.LTable)
			L.Pop(1)
			got := compileOutcome(tbl)
			if got.Probability != tt.want.Probability || got.Result != tt.want.Result ||
				got.Text != tt.want.Text || got.NextAction != tt.want.NextAction ||
				got.Bonus != tt.want.Bonus || got.TimeBonus != tt.want.TimeBonus {
				t.Errorf("compileOutcome = %+v, want %+v", got, tt.want)
			}
			if got.Props != nil {
				t.Errorf("unexpected props %v", got.Props)
			}
		})
	}
}

func TestCompileOutcome_Props(t *testing.T) {
	L, _ := newTestVM()
	defer L.Close()

	if err := L.DoString(`return Outcome { p = 1, result = "success", text = "x", next = "advance", catState = "superposition", counts = { 1, 2 } }`); err != nil {
		t.Fatal(err)
	}
	o := compileOutcome(L.Get(-1).(*lua.LTable))
	if o.Props["catState"] != "superposition" {
		t.Errorf("catState = %v", o.Props["catState"])
	}
	arr, ok := o.Props["counts"].([]any)
	if !ok || len(arr) != 2 || arr[0] != 1 {
		t.Errorf("counts = %#v", o.Props["counts"])
	}
}

func TestHelpers(t *testing.T) {
	L, _ := newTestVM()
	defer L.Close()

	if err := L.DoString(`return Choice "c" { barrier = Barrier(1.5, 0.5), interference = Interference(math.pi, 1) }`); err != nil {
		t.Fatal(err)
	}
	ch := compileChoice(L.Get(-1).(*lua.LTable))
	if ch.Barrier == nil || ch.Barrier.Height != 1.5 || ch.Barrier.Width != 0.5 {
		t.Errorf("barrier = %+v", ch.Barrier)
	}
	if ch.Interference == nil || ch.Interference.Amplitude != 1 || ch.Interference.Phase < 3.14 {
		t.Errorf("interference = %+v", ch.Interference)
	}
}

func TestResolveParticipants(t *testing.T) {
	ids := map[string]int{"a": 0, "b": 1, "c": 2}
	vals := []lua.LValue{lua.LString("c"), lua.LNumber(0), lua.LString("zzz"), lua.LNumber(1.5), lua.LTrue}

	refs, problems := resolveParticipants(vals, ids)
	if len(refs) != 2 || refs[0] != 2 || refs[1] != 0 {
		t.Errorf("refs = %v, want [2 0]", refs)
	}
	if len(problems) != 3 {
		t.Errorf("problems = %v, want 3", problems)
	}
}

func TestSourceOrder_AutoIncrement(t *testing.T) {
	L, coll := newTestVM()
	defer L.Close()

	if err := L.DoString(`
		Level "first" { }
		Level "second" { }
		Level "third" { }
	`); err != nil {
		t.Fatal(err)
	}
	if len(coll.levels) != 3 {
		t.Fatalf("collected %d levels", len(coll.levels))
	}
	for i, raw := range coll.levels {
		if raw.order != i+1 {
			t.Errorf("level %s order = %d, want %d", raw.key, raw.order, i+1)
		}
	}
}

func TestCompile_OrdersByNumberThenSource(t *testing.T) {
	L, coll := newTestVM()
	defer L.Close()

	if err := L.DoString(`
		Game { title = "Order" }
		Level "late" { number = 5 }
		Level "early" { number = 1 }
		Level "tie" { number = 5 }
	`); err != nil {
		t.Fatal(err)
	}
	cat, _, err := compile(coll)
	if err != nil {
		t.Fatal(err)
	}
	var keys []string
	for _, l := range cat.Levels {
		keys = append(keys, l.Key)
	}
	if len(keys) != 3 || keys[0] != "early" || keys[1] != "late" || keys[2] != "tie" {
		t.Errorf("order = %v, want [early late tie]", keys)
	}
}
