package engine

import (
	"fmt"
	"strings"
)

// Action 玩家动作，只有 Fold / Check / Call / Raise 四种
type Action interface {
	Name() string
	isAction()
}

type Fold struct{}

type Check struct{}

type Call struct{}

// Raise Amount 是本轮加注后的总下注额，而不是增量
type Raise struct {
	Amount int64
}

func (Fold) Name() string  { return "fold" }
func (Check) Name() string { return "check" }
func (Call) Name() string  { return "call" }
func (Raise) Name() string { return "raise" }

func (Fold) isAction()  {}
func (Check) isAction() {}
func (Call) isAction()  {}
func (Raise) isAction() {}

// ParseAction 把外部传入的动作名称转换成 Action，未知名称直接拒绝
func ParseAction(name string, amount int64) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "fold":
		return Fold{}, nil
	case "check":
		return Check{}, nil
	case "call":
		return Call{}, nil
	case "raise", "bet":
		if amount <= 0 {
			return nil, fmt.Errorf("%w: raise amount must be positive", ErrRaiseTooSmall)
		}
		return Raise{Amount: amount}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAction, name)
}
