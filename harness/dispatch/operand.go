// 工具函数：指令操作数提取与类型转换。
package dispatch

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/kasuganosora/battlerunner/errs"
	"github.com/kasuganosora/battlerunner/game/entity"
	"github.com/kasuganosora/battlerunner/game/item"
)

// fieldSet 是从指令中提取的 key=value 操作数。
type fieldSet map[string]string

// isDelim 判断 r 是否为操作数分隔符。
func isDelim(r rune) bool {
	return r == ',' || r == ';' || r == '(' || r == ')'
}

// fields 提取指令中的全部 key=value 操作数。
// 也接受 key:数字 形式（例如 冷却时间:3回合）。
func fields(in string) fieldSet {
	f := fieldSet{}
	for _, seg := range strings.FieldsFunc(in, isDelim) {
		key, val, ok := strings.Cut(seg, "=")
		if !ok {
			k, v, found := strings.Cut(seg, ":")
			if !found || v == "" || !startsNumeric(v) {
				continue
			}
			key, val = k, v
		}
		if i := strings.LastIndex(key, ":"); i >= 0 {
			key = key[i+1:]
		}
		if key == "" {
			continue
		}
		f[key] = val
	}
	return f
}

func startsNumeric(s string) bool {
	c := s[0]
	return c == '-' || c == '+' || (c >= '0' && c <= '9')
}

// lookup 依次尝试 names，返回第一个存在的值及其键名。
func (f fieldSet) lookup(names ...string) (key, val string, ok bool) {
	for _, n := range names {
		if v, found := f[n]; found {
			return n, v, true
		}
	}
	return "", "", false
}

// unitSuffixes 是数值后允许出现的中文单位。
var unitSuffixes = []string{"回合", "金币", "点", "级", "个", "次", "件", "%"}

func trimUnits(s string) string {
	for changed := true; changed; {
		changed = false
		for _, u := range unitSuffixes {
			if t := strings.TrimSuffix(s, u); t != s {
				s, changed = t, true
			}
		}
	}
	return s
}

// maxOperand 是整数操作数的绝对值上限，超出按格式错误处理。
const maxOperand = math.MaxInt32

// cnDigits 是中文数字的个位。
var cnDigits = map[rune]int{
	'零': 0, '一': 1, '二': 2, '两': 2, '三': 3, '四': 4,
	'五': 5, '六': 6, '七': 7, '八': 8, '九': 9,
}

// cnUnits 是中文数字的位，必须从大到小出现。
var cnUnits = map[rune]int{'十': 10, '百': 100, '千': 1000, '万': 10000}

// parseChinese 解析一万以内的中文数字：十二、二十五、一百零五、两千。
func parseChinese(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	total, cur, last := 0, 0, math.MaxInt
	digit := false
	for i, r := range []rune(s) {
		if d, ok := cnDigits[r]; ok {
			if digit && cur != 0 {
				return 0, false
			}
			cur, digit = d, true
			continue
		}
		unit, ok := cnUnits[r]
		if !ok || unit >= last {
			return 0, false
		}
		if !digit {
			// 只有开头的"十"可以省略"一"。
			if i != 0 || unit != 10 {
				return 0, false
			}
			cur = 1
		}
		total += cur * unit
		cur, digit, last = 0, false, unit
	}
	return total + cur, true
}

// parseCount 解析阿拉伯数字或中文数字，超出 maxOperand 视为无效。
func parseCount(s string) (int, bool) {
	n, ok := parseChinese(s)
	if !ok {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, false
		}
		n = v
	}
	return n, n >= -maxOperand && n <= maxOperand
}

// countOf 解析 field 的数量值，失败时返回 MalformedOperandError。
func countOf(raw, field string) (int, error) {
	n, ok := parseCount(raw)
	if !ok {
		return 0, errs.Malformed(field, raw)
	}
	return n, nil
}

// intField 读取整数操作数。缺失时 ok=false；存在但无法解析时返回 MalformedOperandError。
func (f fieldSet) intField(names ...string) (n int, ok bool, err error) {
	key, raw, found := f.lookup(names...)
	if !found {
		return 0, false, nil
	}
	s := trimUnits(raw)
	if v, good := parseCount(s); good {
		return v, true, nil
	}
	if v, perr := strconv.ParseFloat(s, 64); perr == nil && v == math.Trunc(v) && math.Abs(v) <= maxOperand {
		return int(v), true, nil
	}
	return 0, true, errs.Malformed(key, raw)
}

// floatField 读取浮点操作数，带 % 的值除以 100。
func (f fieldSet) floatField(names ...string) (v float64, ok bool, err error) {
	key, raw, found := f.lookup(names...)
	if !found {
		return 0, false, nil
	}
	v, perr := parseRatio(raw)
	if perr != nil {
		return 0, true, errs.Malformed(key, raw)
	}
	return v, true, nil
}

// parseRatio 解析 "0.3" 或 "30%"。
func parseRatio(raw string) (float64, error) {
	pct := strings.HasSuffix(raw, "%")
	v, err := strconv.ParseFloat(trimUnits(raw), 64)
	if err != nil {
		return 0, err
	}
	if pct {
		v /= 100
	}
	return v, nil
}

// numberField 读取原样数值（不做百分比换算），用于 加成百分比=50 之类的参数。
func (f fieldSet) numberField(names ...string) (v float64, ok bool, err error) {
	key, raw, found := f.lookup(names...)
	if !found {
		return 0, false, nil
	}
	v, perr := strconv.ParseFloat(trimUnits(raw), 64)
	if perr != nil {
		return 0, true, errs.Malformed(key, raw)
	}
	return v, true, nil
}

// countRe 匹配数量：阿拉伯数字或一万以内的中文数字（十二、一百零五）。
const countRe = `(\d+|[零一二两三四五六七八九十百千万]+)`

// countAfter 用 re 的第一个捕获组解析数量。
func countAfter(re *regexp.Regexp, in, field string) (int, bool, error) {
	m := re.FindStringSubmatch(in)
	if m == nil {
		return 0, false, nil
	}
	n, ok := parseCount(m[1])
	if !ok {
		return 0, true, errs.Malformed(field, m[1])
	}
	return n, true, nil
}

// splitTop 按顶层逗号切分，括号内的逗号不切。
func splitTop(s string) []string {
	var out []string
	depth, start := 0, 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case ',', ';':
			if depth == 0 {
				if part := s[start:i]; part != "" {
					out = append(out, part)
				}
				start = i + 1
			}
		}
	}
	if part := s[start:]; part != "" {
		out = append(out, part)
	}
	return out
}

// afterColon 返回第一个冒号之后的内容。
func afterColon(in string) (string, bool) {
	_, rest, ok := strings.Cut(in, ":")
	return rest, ok && rest != ""
}

// parseValue 把字符串转换为 bool、int、float64 或原样字符串。
// 百分号被去掉，数值保持百分数本身（50% → 50）。
func parseValue(raw string) any {
	switch strings.ToLower(raw) {
	case "true", "是":
		return true
	case "false", "否":
		return false
	}
	s := strings.TrimSuffix(raw, "%")
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}
	return raw
}

// ---- 词表 ----

var classWords = []struct{ word, class string }{
	{"战士", entity.ClassWarrior},
	{"法师", entity.ClassMage},
	{"盗贼", entity.ClassRogue},
	{"牧师", entity.ClassPriest},
	{"warrior", entity.ClassWarrior},
	{"mage", entity.ClassMage},
	{"rogue", entity.ClassRogue},
	{"priest", entity.ClassPriest},
}

// classOf 识别职业词；没有则返回空字符串。
func classOf(in string) string {
	for _, c := range classWords {
		if strings.Contains(in, c.word) {
			return c.class
		}
	}
	return ""
}

// factionOf 识别阵营名称，中英文均可。
func factionOf(s string) string {
	switch strings.ToLower(s) {
	case "alliance", "联盟":
		return entity.FactionAlliance
	case "horde", "部落":
		return entity.FactionHorde
	case "neutral", "中立":
		return entity.FactionNeutral
	}
	return ""
}

var qualityWords = []struct{ word, quality string }{
	{"传说", item.QualityLegendary},
	{"橙色", item.QualityLegendary},
	{"史诗", item.QualityEpic},
	{"紫色", item.QualityEpic},
	{"稀有", item.QualityRare},
	{"精良", item.QualityRare},
	{"蓝色", item.QualityRare},
	{"优秀", item.QualityUncommon},
	{"绿色", item.QualityUncommon},
	{"普通", item.QualityCommon},
	{"白色", item.QualityCommon},
}

func qualityOf(in string) string {
	for _, q := range qualityWords {
		if strings.Contains(in, q.word) {
			return q.quality
		}
	}
	return ""
}

var slotWords = []struct{ word, slot string }{
	{"盾牌", entity.SlotOffHand},
	{"副手", entity.SlotOffHand},
	{"武器", entity.SlotMainHand},
	{"主手", entity.SlotMainHand},
	{"护甲", entity.SlotArmor},
	{"盔甲", entity.SlotArmor},
	{"防具", entity.SlotArmor},
	{"饰品", entity.SlotAccessory},
	{"戒指", entity.SlotAccessory},
	{"项链", entity.SlotAccessory},
}

func slotOf(in string) string {
	for _, s := range slotWords {
		if strings.Contains(in, s.word) {
			return s.slot
		}
	}
	return ""
}

// statWords 把属性词映射为可被装备与 Buff 修改的属性。长词在前。
var statWords = []struct {
	word string
	stat entity.Stat
}{
	{"法术攻击", entity.StatMagicAttack},
	{"魔法攻击", entity.StatMagicAttack},
	{"物理攻击", entity.StatPhysicalAttack},
	{"攻击力", entity.StatPhysicalAttack},
	{"攻击", entity.StatPhysicalAttack},
	{"魔法防御", entity.StatMagicDefense},
	{"法术防御", entity.StatMagicDefense},
	{"物理防御", entity.StatPhysicalDefense},
	{"防御力", entity.StatPhysicalDefense},
	{"防御", entity.StatPhysicalDefense},
	{"最大生命", entity.StatMaxHP},
	{"生命", entity.StatMaxHP},
	{"力量", entity.StatStrength},
	{"敏捷", entity.StatAgility},
	{"智力", entity.StatIntellect},
	{"耐力", entity.StatStamina},
	{"精神", entity.StatSpirit},
	{"速度", entity.StatSpeed},
}

// statOf 识别 in 中第一个属性词。
func statOf(in string) (entity.Stat, bool) {
	for _, s := range statWords {
		if strings.Contains(in, s.word) {
			return s.stat, true
		}
	}
	return "", false
}

// statExact 要求 key 完整等于某个属性词。
func statExact(key string) (entity.Stat, bool) {
	for _, s := range statWords {
		if key == s.word {
			return s.stat, true
		}
	}
	return "", false
}

var effectWords = []struct{ word, effect string }{
	{"眩晕", entity.EffectStunned},
	{"沉默", entity.EffectSilenced},
	{"恐惧", entity.EffectFeared},
}

func effectOf(in string) string {
	for _, e := range effectWords {
		if strings.Contains(in, e.word) {
			return e.effect
		}
	}
	return ""
}

var durationRe = regexp.MustCompile(`持续` + countRe + `个?回合`)

// durationOf 读取 "持续N回合"，也接受 持续=N 操作数。
func durationOf(in string, f fieldSet, def int) (int, error) {
	if n, ok, err := countAfter(durationRe, in, "持续"); ok || err != nil {
		return n, err
	}
	if n, ok, err := f.intField("持续", "持续时间", "回合"); ok || err != nil {
		return n, err
	}
	return def, nil
}

var signedPercentRe = regexp.MustCompile(`([+-]\d+(?:\.\d+)?)%`)

// signedPercent 读取 "+50%" 形式的百分比，返回比例（0.5）。
func signedPercent(in string) (float64, bool) {
	m := signedPercentRe.FindStringSubmatch(in)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v / 100, true
}

// conditionRe 匹配 (当k=v) 条件。
var conditionRe = regexp.MustCompile(`\(当([^=()]+)=([^()]+)\)`)
