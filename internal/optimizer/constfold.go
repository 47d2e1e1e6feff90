package optimizer

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"uc/internal/ir"
)

// ConstantFolding computes binary operations whose operands both trace back
// to a literal (or, for booleans, a prior fold) and replaces them with a
// literal_<type> (arithmetic) or the canonical eq_<type> x,x,r / ne_<type>
// x,x,r self-comparison idiom (relational/logical), so BranchFolding can
// recognize a constant-true/false condition without a separate boolean
// literal opcode.
type ConstantFolding struct{}

func (*ConstantFolding) Name() string { return "constant-folding" }
func (*ConstantFolding) Description() string {
	return "evaluates binary ops over literal operands and folds constant comparisons"
}

var arithFamilies = map[string]bool{"add": true, "sub": true, "mul": true, "div": true, "mod": true}
var relFamilies = map[string]bool{"lt": true, "le": true, "gt": true, "ge": true, "eq": true, "ne": true}
var boolFamilies = map[string]bool{"and": true, "or": true}

func (*ConstantFolding) Apply(fn *ir.Function, _ []string) bool {
	changed := false
	lit := map[string]string{}  // temp -> literal value string
	boolc := map[string]bool{}  // temp -> folded boolean value

	for _, blk := range fn.Blocks {
		for _, inst := range blk.Instructions {
			if !inst.Active {
				continue
			}

			if family(inst.Op) == "literal" && len(inst.Args) == 2 {
				lit[inst.Args[1]] = inst.Args[0]
				continue
			}

			fam := family(inst.Op)
			kind := opKind(inst.Op)

			if (arithFamilies[fam] || relFamilies[fam]) && len(inst.Args) == 3 {
				l, r, dst := inst.Args[0], inst.Args[1], inst.Args[2]
				lv, lok := lit[l]
				rv, rok := lit[r]
				if !lok || !rok {
					continue
				}
				if arithFamilies[fam] {
					if result, ok := foldArith(fam, kind, lv, rv); ok {
						inst.Op = "literal_" + kind
						inst.Args = []string{result, dst}
						lit[dst] = result
						changed = true
					}
					continue
				}
				if b, ok := foldRel(fam, kind, lv, rv); ok {
					oldOp, oldL, oldR := inst.Op, inst.Args[0], inst.Args[1]
					foldToCanonicalBool(inst, l, kind, b)
					boolc[dst] = b
					if inst.Op != oldOp || inst.Args[0] != oldL || inst.Args[1] != oldR {
						changed = true
					}
				}
				continue
			}

			if boolFamilies[fam] && len(inst.Args) == 3 {
				l, r, dst := inst.Args[0], inst.Args[1], inst.Args[2]
				lb, lok := boolc[l]
				rb, rok := boolc[r]
				if !lok || !rok {
					continue
				}
				var b bool
				if fam == "and" {
					b = lb && rb
				} else {
					b = lb || rb
				}
				foldToCanonicalBool(inst, l, kind, b)
				boolc[dst] = b
				changed = true
			}
		}
	}

	return changed
}

// foldToCanonicalBool rewrites inst in place to the self-comparison idiom:
// eq_<kind> witness,witness,dst for true, ne_<kind> witness,witness,dst for
// false. x == x (or x != x) holds regardless of what x actually is, so any
// already-live operand works as the witness.
func foldToCanonicalBool(inst *ir.Instruction, witness, kind string, value bool) {
	if value {
		inst.Op = "eq_" + kind
	} else {
		inst.Op = "ne_" + kind
	}
	inst.Args = []string{witness, witness, inst.Args[2]}
}

func opKind(op string) string {
	i := strings.IndexByte(op, '_')
	if i < 0 {
		return op
	}
	return op[i+1:]
}

func foldArith(fam, kind, lv, rv string) (string, bool) {
	switch kind {
	case "int":
		l, err1 := strconv.Atoi(lv)
		r, err2 := strconv.Atoi(rv)
		if err1 != nil || err2 != nil {
			return "", false
		}
		switch fam {
		case "add":
			return strconv.Itoa(l + r), true
		case "sub":
			return strconv.Itoa(l - r), true
		case "mul":
			return strconv.Itoa(l * r), true
		case "div":
			if r == 0 {
				return "", false
			}
			return strconv.Itoa(floorDiv(l, r)), true
		case "mod":
			if r == 0 {
				return "", false
			}
			return strconv.Itoa(floorMod(l, r)), true
		}
	case "float":
		l, err1 := strconv.ParseFloat(lv, 64)
		r, err2 := strconv.ParseFloat(rv, 64)
		if err1 != nil || err2 != nil {
			return "", false
		}
		switch fam {
		case "add":
			return formatFloat(l + r), true
		case "sub":
			return formatFloat(l - r), true
		case "mul":
			return formatFloat(l * r), true
		case "div":
			if r == 0 {
				return "", false
			}
			return formatFloat(l / r), true
		}
	}
	return "", false
}

func foldRel(fam, kind, lv, rv string) (bool, bool) {
	switch kind {
	case "int", "float":
		l, err1 := strconv.ParseFloat(lv, 64)
		r, err2 := strconv.ParseFloat(rv, 64)
		if err1 != nil || err2 != nil {
			return false, false
		}
		switch fam {
		case "lt":
			return l < r, true
		case "le":
			return l <= r, true
		case "gt":
			return l > r, true
		case "ge":
			return l >= r, true
		case "eq":
			return l == r, true
		case "ne":
			return l != r, true
		}
	case "char":
		switch fam {
		case "eq":
			return lv == rv, true
		case "ne":
			return lv != rv, true
		}
	}
	return false, false
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int) int {
	m := a % b
	if m != 0 && ((a < 0) != (b < 0)) {
		m += b
	}
	return m
}

func formatFloat(f float64) string {
	if math.Trunc(f) == f {
		return fmt.Sprintf("%.1f", f)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
