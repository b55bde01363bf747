package settings

import "fmt"

type Op int

const (
	OpNone   Op = 0
	OpPut    Op = 1
	OpDelete Op = 2
)

func (v Op) String() string {
	switch v {
	case OpNone:
		return "none"
	case OpPut:
		return "put"
	case OpDelete:
		return "delete"
	default:
		return fmt.Sprintf("invalid op %d", int(v))
	}
}

// Change describes one committed modification of a setting.
type Change struct {
	op     Op
	name   string
	raw    []byte
	oldRaw []byte
}

func (chg *Change) Op() Op       { return chg.op }
func (chg *Change) Name() string { return chg.name }

func (chg *Change) HasValue() bool    { return chg.raw != nil }
func (chg *Change) HasOldValue() bool { return chg.oldRaw != nil }

// Value decodes the new value; nil for deletions.
func (chg *Change) Value() (any, error) {
	if chg.raw == nil {
		return nil, nil
	}
	return decodeAny(chg.name, chg.raw)
}

// OldValue decodes the value before the change; nil if there was none.
func (chg *Change) OldValue() (any, error) {
	if chg.oldRaw == nil {
		return nil, nil
	}
	return decodeAny(chg.name, chg.oldRaw)
}
