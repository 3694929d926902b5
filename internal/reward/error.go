package reward

import "errors"

var (
	ErrRewardNotFound        = errors.New("reward not found")
	ErrRewardInactive        = errors.New("reward is not active")
	ErrRewardOutOfStock      = errors.New("reward out of stock")
	ErrAmountBelowCost       = errors.New("amount does not cover the reward cost")
	ErrInvalidAmount         = errors.New("amount must be positive")
	ErrInvalidReward         = errors.New("invalid reward definition")
	ErrUnsupportedRewardType = errors.New("reward type is not supported")
)
