// models/models.go
package models

import (
	"fmt"
	"strings"
)

// MaxHP 玩家初始血量，也是血量上限
const MaxHP = 100

// Phase 表示一轮中的挑战类型。零值 PhaseUnknown 不是合法阶段，
// 在提交里表示"当前阶段"。
type Phase int

const (
	PhaseUnknown Phase = iota
	PhaseArithmetic
	PhaseReaction
	PhaseShield
)

// PhaseOrder is the fixed order of phases inside one round.
var PhaseOrder = [...]Phase{PhaseArithmetic, PhaseReaction, PhaseShield}

func (p Phase) String() string {
	switch p {
	case PhaseArithmetic:
		return "bodmas"
	case PhaseReaction:
		return "chemical"
	case PhaseShield:
		return "blocks"
	default:
		return "unknown"
	}
}

// Valid reports whether p is one of the three playable phases.
func (p Phase) Valid() bool {
	switch p {
	case PhaseArithmetic, PhaseReaction, PhaseShield:
		return true
	default:
		return false
	}
}

// Next returns the phase that follows p and whether the cycle wrapped
// around into a new round.
func (p Phase) Next() (Phase, bool) {
	switch p {
	case PhaseArithmetic:
		return PhaseReaction, false
	case PhaseReaction:
		return PhaseShield, false
	case PhaseShield:
		return PhaseArithmetic, true
	default:
		return PhaseArithmetic, false
	}
}

// ParsePhase 解析阶段名称，空字符串返回 PhaseUnknown
func ParsePhase(s string) (Phase, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return PhaseUnknown, nil
	case "bodmas":
		return PhaseArithmetic, nil
	case "chemical":
		return PhaseReaction, nil
	case "blocks":
		return PhaseShield, nil
	default:
		return PhaseUnknown, fmt.Errorf("unknown phase %q", s)
	}
}

// PlayerState 玩家在一局对战中的状态
type PlayerState struct {
	HP     int    `json:"hp"`
	Shield int    `json:"shield"`
	Energy int    `json:"energy"`
	Combo  int    `json:"combo"`
	Name   string `json:"name"`
}

// NewPlayerState returns a fresh state for a player joining a match.
func NewPlayerState(name string) PlayerState {
	return PlayerState{HP: MaxHP, Name: name}
}

// Reset 重开时恢复初始数值，名字保持不变
func (s *PlayerState) Reset() {
	s.HP = MaxHP
	s.Shield = 0
	s.Energy = 0
	s.Combo = 0
}

// Alive reports whether the player still has hit points left.
func (s PlayerState) Alive() bool {
	return s.HP > 0
}
