package service

import "strings"

// SelectionState 个人课表的客户端可见状态
type SelectionState string

const (
	SelectionEmpty     SelectionState = "empty"
	SelectionPopulated SelectionState = "populated"
)

// Selection 学生已选 Session ID 的集合，保留加入顺序
// 非并发安全，每次请求各自构造
type Selection struct {
	ids   []string
	index map[string]bool
}

// NewSelection 由 ID 列表构造，去空白、去空串、去重
func NewSelection(ids []string) *Selection {
	s := &Selection{index: make(map[string]bool, len(ids))}
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add 加入一个 ID，已存在或为空返回 false
func (s *Selection) Add(id string) bool {
	id = strings.TrimSpace(id)
	if id == "" || s.index[id] {
		return false
	}
	s.index[id] = true
	s.ids = append(s.ids, id)
	return true
}

// Remove 移除一个 ID，不存在返回 false
func (s *Selection) Remove(id string) bool {
	id = strings.TrimSpace(id)
	if !s.index[id] {
		return false
	}
	delete(s.index, id)
	for i, v := range s.ids {
		if v == id {
			s.ids = append(s.ids[:i], s.ids[i+1:]...)
			break
		}
	}
	return true
}

// Clear 清空
func (s *Selection) Clear() {
	s.ids = nil
	s.index = make(map[string]bool)
}

// Contains 是否已选
func (s *Selection) Contains(id string) bool {
	return s.index[strings.TrimSpace(id)]
}

// State 空 / 非空
func (s *Selection) State() SelectionState {
	if len(s.ids) == 0 {
		return SelectionEmpty
	}
	return SelectionPopulated
}

// IDs 返回副本，空选择返回非 nil 空切片
func (s *Selection) IDs() []string {
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

// Len 已选数量
func (s *Selection) Len() int {
	return len(s.ids)
}
