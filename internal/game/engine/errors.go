package engine

import "errors"

// 校验错误：调用方的请求不合法，牌桌不做任何修改
var (
	ErrNotYourTurn       = errors.New("not your turn")
	ErrNoBettingRound    = errors.New("no betting round in progress")
	ErrIllegalCheck      = errors.New("cannot check facing a bet")
	ErrRaiseTooSmall     = errors.New("raise below minimum")
	ErrInsufficientStack = errors.New("insufficient stack")
	ErrUnknownAction     = errors.New("unknown action")
	ErrNotSeated         = errors.New("player not seated")
	ErrAlreadySeated     = errors.New("player already seated")
	ErrTableFull         = errors.New("table is full")
	ErrInvalidStack      = errors.New("stack must be positive")
)

// 生命周期错误：牌桌当前不处于可开始的状态
var (
	ErrNotEnoughPlayers = errors.New("not enough players")
	ErrHandInProgress   = errors.New("hand already in progress")
	ErrInvalidDeck      = errors.New("invalid deck")
)

var validationErrors = []error{
	ErrNotYourTurn, ErrNoBettingRound, ErrIllegalCheck, ErrRaiseTooSmall,
	ErrInsufficientStack, ErrUnknownAction, ErrNotSeated, ErrAlreadySeated,
	ErrTableFull, ErrInvalidStack,
}

var lifecycleErrors = []error{ErrNotEnoughPlayers, ErrHandInProgress, ErrInvalidDeck}

// IsValidation 是否为请求校验错误
func IsValidation(err error) bool {
	return matchAny(err, validationErrors)
}

// IsLifecycle 是否为生命周期错误
func IsLifecycle(err error) bool {
	return matchAny(err, lifecycleErrors)
}

func matchAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
