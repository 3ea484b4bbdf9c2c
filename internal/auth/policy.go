package auth

import (
	"fmt"
	"os"
	"sync"

	"github.com/siteops/opsflow-gin/internal/workflow"
	"gopkg.in/yaml.v3"
)

// policyFile 角色 → 能力映射的 YAML 结构
type policyFile struct {
	Roles map[string][]string `yaml:"roles"`
}

// Policy 能力策略
// 把签发方的角色声明翻译为工作流能力,翻译表可从 YAML 文件加载并热替换
type Policy struct {
	mu    sync.RWMutex
	roles map[string][]workflow.Capability
}

// DefaultPolicy 内置策略: 未提供策略文件时的角色映射
func DefaultPolicy() *Policy {
	return &Policy{
		roles: map[string][]workflow.Capability{
			"admin": {
				workflow.CapApprove,
				workflow.CapIssue,
				workflow.CapReopen,
				workflow.CapPurge,
				workflow.CapTimesheetHandle,
				workflow.CapOfficeAcknowledge,
			},
			"supervisor": {
				workflow.CapApprove,
				workflow.CapReopen,
			},
			"storekeeper": {
				workflow.CapIssue,
			},
			"timekeeper": {
				workflow.CapTimesheetHandle,
			},
			"office": {
				workflow.CapOfficeAcknowledge,
			},
		},
	}
}

// LoadPolicy 从 YAML 文件加载策略,path 为空时返回内置策略
func LoadPolicy(path string) (*Policy, error) {
	if path == "" {
		return DefaultPolicy(), nil
	}

	p := DefaultPolicy()
	if err := p.Reload(path); err != nil {
		return nil, err
	}
	return p, nil
}

// Reload 重新加载策略文件,替换整张翻译表
func (p *Policy) Reload(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read policy file: %w", err)
	}

	var pf policyFile
	if err := yaml.Unmarshal(raw, &pf); err != nil {
		return fmt.Errorf("failed to parse policy file: %w", err)
	}
	if len(pf.Roles) == 0 {
		return fmt.Errorf("policy file defines no roles: %s", path)
	}

	roles := make(map[string][]workflow.Capability, len(pf.Roles))
	for role, caps := range pf.Roles {
		list := make([]workflow.Capability, 0, len(caps))
		for _, c := range caps {
			list = append(list, workflow.Capability(c))
		}
		roles[role] = list
	}

	p.mu.Lock()
	p.roles = roles
	p.mu.Unlock()
	return nil
}

// Capabilities 返回一组角色对应的能力集合
func (p *Policy) Capabilities(roles []string) map[workflow.Capability]bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	caps := make(map[workflow.Capability]bool)
	for _, role := range roles {
		for _, c := range p.roles[role] {
			caps[c] = true
		}
	}
	return caps
}

// Actor 根据用户 ID 与角色构造工作流参与者
func (p *Policy) Actor(userID string, roles []string) *workflow.Actor {
	return &workflow.Actor{
		ID:           userID,
		Capabilities: p.Capabilities(roles),
	}
}
