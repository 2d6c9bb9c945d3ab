package battle

import (
	"testing"

	"github.com/kasuganosora/battlerunner/game/entity"
	"github.com/kasuganosora/battlerunner/harness/testctx"
)

func monsterWithSpeed(alias string, speed int) *entity.Monster {
	m := entity.NewMonster(alias)
	m.Speed = speed
	return m
}

func TestSpeedTurnManagerOrder(t *testing.T) {
	tc := testctx.New(1)
	tc.AddMonster(monsterWithSpeed("monster_1", 40))
	tc.AddMonster(monsterWithSpeed("monster_2", 80))
	tc.AddMonster(monsterWithSpeed("monster_3", 60))

	e := NewEngine(Config{})
	order := e.BuildTurnOrder(tc)

	want := []string{"monster_2", "monster_3", "monster_1"}
	if len(order) != len(want) {
		t.Fatalf("len = %d, want %d", len(order), len(want))
	}
	for i, cb := range order {
		if cb.Key() != want[i] {
			t.Errorf("order[%d] = %s, want %s", i, cb.Key(), want[i])
		}
	}
	if got := tc.Variables["turn_order[0].alias"]; got != "monster_2" {
		t.Errorf("turn_order[0].alias = %v", got)
	}
	if got := tc.Variables["turn_order[0].speed"]; got != 80 {
		t.Errorf("turn_order[0].speed = %v", got)
	}
	if got := tc.Variables["turn_order_length"]; got != 3 {
		t.Errorf("turn_order_length = %v", got)
	}
}

func TestSpeedTurnManagerTiesAreStable(t *testing.T) {
	tc := testctx.New(1)
	hero := entity.NewCharacter("character", entity.ClassWarrior)
	hero.Speed = entity.Computed(50)
	tc.AddCharacter(hero)
	tc.AddMonster(monsterWithSpeed("b", 50))
	tc.AddMonster(monsterWithSpeed("a", 50))

	e := NewEngine(Config{})
	first := e.BuildTurnOrder(tc)
	for n := 0; n < 5; n++ {
		again := e.BuildTurnOrder(tc)
		for i := range first {
			if first[i] != again[i] {
				t.Fatalf("run %d: order changed at %d", n, i)
			}
		}
	}
	if first[0].Key() != "character" || first[1].Key() != "b" || first[2].Key() != "a" {
		t.Errorf("tie order = %s,%s,%s", first[0].Key(), first[1].Key(), first[2].Key())
	}
}

func TestSpeedTurnManagerSkipsDead(t *testing.T) {
	tc := testctx.New(1)
	tc.AddMonster(monsterWithSpeed("alive", 10))
	dead := monsterWithSpeed("dead", 99)
	dead.HP = 0
	tc.AddMonster(dead)

	order := NewEngine(Config{}).BuildTurnOrder(tc)
	if len(order) != 1 || order[0].Key() != "alive" {
		t.Fatalf("order = %v, want only alive", order)
	}
}

func TestTurnOrderUsesBuffedSpeed(t *testing.T) {
	tc := testctx.New(1)
	slow := monsterWithSpeed("slow", 10)
	slow.Buffs.Add(entity.Buff{ID: "haste", Stat: entity.StatSpeed, Percent: 2, Remaining: 2})
	tc.AddMonster(slow)
	tc.AddMonster(monsterWithSpeed("fast", 20))

	order := NewEngine(Config{}).BuildTurnOrder(tc)
	if order[0].Key() != "slow" {
		t.Errorf("first = %s, want slow (10*3=30)", order[0].Key())
	}
}
