// 持久化：角色的保存与加载。只有这里会调用角色仓库。
package dispatch

import (
	"context"
	"strings"

	"github.com/kasuganosora/battlerunner/game/entity"
	"github.com/kasuganosora/battlerunner/harness/testctx"
	"go.uber.org/zap"
)

func (d *Dispatcher) persistRules() []Rule {
	return []Rule{
		{
			Name: "save_character",
			Match: func(in string) bool {
				return strings.Contains(in, "更新数据库") || strings.Contains(in, "保存角色")
			},
			Handle: d.handleSave,
		},
		{
			Name:   "load_character",
			Match:  func(in string) bool { return strings.Contains(in, "从数据库加载角色") },
			Handle: d.handleLoad,
		},
	}
}

// characterArg 解析 角色=别名 操作数，缺省为主角色。
func characterArg(tc *testctx.Context, f fieldSet) (*entity.Character, error) {
	if _, alias, ok := f.lookup("角色", "character"); ok {
		return tc.GetCharacter(alias)
	}
	return tc.PrimaryCharacter()
}

// monsterArg 解析 怪物=别名 操作数，缺省为主怪物。
func monsterArg(tc *testctx.Context, f fieldSet) (*entity.Monster, error) {
	if _, alias, ok := f.lookup("怪物", "monster"); ok {
		return tc.GetMonster(alias)
	}
	return tc.PrimaryMonster()
}

// handleSave 保存角色，并把 ID 写入 saved_character_id。
func (d *Dispatcher) handleSave(ctx context.Context, tc *testctx.Context, in string) error {
	if d.repo == nil {
		return ErrNoRepository
	}
	ch, err := characterArg(tc, fields(in))
	if err != nil {
		return err
	}
	if err := d.repo.Save(ctx, ch); err != nil {
		tc.SetVariable("operation_success", false)
		tc.SetVariable("error_message", err.Error())
		return err
	}
	tc.SetVariable("saved_character_id", ch.ID)
	tc.SetVariable("operation_success", true)
	d.logger.Info("character saved",
		zap.String("alias", ch.Alias),
		zap.String("id", ch.ID))
	return nil
}

// handleLoad 按 id 操作数或 saved_character_id 加载角色，替换同别名的角色。
func (d *Dispatcher) handleLoad(ctx context.Context, tc *testctx.Context, in string) error {
	if d.repo == nil {
		return ErrNoRepository
	}
	f := fields(in)
	_, id, ok := f.lookup("id", "ID")
	if !ok {
		v, _ := tc.Variables["saved_character_id"].(string)
		id = v
	}
	if id == "" {
		ch, err := tc.PrimaryCharacter()
		if err != nil {
			return err
		}
		id = ch.ID
	}

	ch, err := d.repo.Load(ctx, id)
	if err != nil {
		tc.SetVariable("character_loaded", false)
		return err
	}
	d.calc.Refresh(ch)
	if prev, ok := tc.Characters[ch.Alias]; ok && prev != nil {
		ch.Seq = prev.Seq
		tc.Characters[ch.Alias] = ch
	} else {
		tc.AddCharacter(ch)
	}
	tc.SetVariable("character_loaded", true)
	tc.SetVariable("loaded_character_id", ch.ID)
	d.logger.Info("character loaded",
		zap.String("alias", ch.Alias),
		zap.String("id", ch.ID))
	return nil
}
