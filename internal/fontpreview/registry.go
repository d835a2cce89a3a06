package fontpreview

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Rule 一条已注册的字体规则，对应页面上的一个 @font-face
type Rule struct {
	ID     string
	Family string
	Path   string
	CSS    string
}

// FamilyResolver 从字体文件解析族名。解析失败时注册方退回使用标识符。
type FamilyResolver func(path string) (string, error)

// Registry 字体注册表。
// 注册以净化后的标识符为键且幂等：同一标识符重复注册只产生一条规则。
type Registry struct {
	mu       sync.Mutex
	rules    map[string]Rule
	order    []string
	resolver FamilyResolver
	logger   *zap.Logger
}

// NewRegistry 创建字体注册表，resolver 可为 nil
func NewRegistry(logger *zap.Logger, resolver FamilyResolver) *Registry {
	return &Registry{
		rules:    make(map[string]Rule),
		resolver: resolver,
		logger:   logger,
	}
}

// SanitizeIdentifier 把字体路径净化为规则标识符：
// 取文件名、去掉扩展名，其余字符只保留字母数字、下划线和连字符。
func SanitizeIdentifier(fontPath string) string {
	base := filepath.Base(strings.ReplaceAll(fontPath, "\\", "/"))
	base = strings.TrimSuffix(base, filepath.Ext(base))

	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	if b.Len() == 0 {
		return "default"
	}
	return b.String()
}

// Register 注册字体并返回规则。重复注册同一标识符直接返回已有规则。
func (r *Registry) Register(fontPath string) Rule {
	id := SanitizeIdentifier(fontPath)

	r.mu.Lock()
	defer r.mu.Unlock()

	if rule, ok := r.rules[id]; ok {
		return rule
	}

	family := id
	if r.resolver != nil {
		if name, err := r.resolver(fontPath); err == nil && name != "" {
			family = name
		} else if err != nil {
			r.logger.Warn("解析字体族名失败，使用标识符代替",
				zap.String("path", fontPath), zap.Error(err))
		}
	}

	rule := Rule{
		ID:     id,
		Family: family,
		Path:   fontPath,
		CSS: fmt.Sprintf("@font-face { font-family: '%s'; src: url('/font_file/%s'); }",
			id, filepath.Base(strings.ReplaceAll(fontPath, "\\", "/"))),
	}
	r.rules[id] = rule
	r.order = append(r.order, id)

	r.logger.Info("注册字体", zap.String("id", id), zap.String("family", family))
	return rule
}

// Rules 按注册顺序返回全部规则
func (r *Registry) Rules() []Rule {
	r.mu.Lock()
	defer r.mu.Unlock()

	rules := make([]Rule, 0, len(r.order))
	for _, id := range r.order {
		rules = append(rules, r.rules[id])
	}
	return rules
}

// StyleSheet 拼接全部 @font-face 规则
func (r *Registry) StyleSheet() string {
	rules := r.Rules()
	lines := make([]string, 0, len(rules))
	for _, rule := range rules {
		lines = append(lines, rule.CSS)
	}
	return strings.Join(lines, "\n")
}

// Len 已注册规则数
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rules)
}
