package api

import (
	"cdn-blocker/lib/config"
	"cdn-blocker/lib/lists"
	"cdn-blocker/lib/networking"
	"cdn-blocker/lib/utils"
)

// Service is the operation surface the HTTP handlers drive. The concrete
// implementation talks to the live firewall; tests substitute a fake.
type Service interface {
	Status() (*StatusReport, error)
	Apply() (*ApplyReport, error)
	Flush() error
	AllowPort(port string) error
}

// StatusReport describes the firewall state this tool owns plus the host's
// interfaces.
type StatusReport struct {
	IPSetName  string                        `json:"ipset_name"`
	ChainName  string                        `json:"chain_name"`
	Firewall   *networking.Status            `json:"firewall"`
	Interfaces []networking.InterfaceSummary `json:"interfaces"`
}

// ApplyReport summarizes a finished apply.
type ApplyReport struct {
	RangesApplied int `json:"ranges_applied"`
	TokensSkipped int `json:"tokens_skipped"`
}

// BlockerService implements Service against the live kernel.
type BlockerService struct {
	cfg        *config.Config
	interfaces []networking.Interface
}

func NewBlockerService(cfg *config.Config, interfaces []networking.Interface) *BlockerService {
	return &BlockerService{cfg: cfg, interfaces: interfaces}
}

func (s *BlockerService) Status() (*StatusReport, error) {
	reconciler, err := networking.BuildReconciler(s.cfg)
	if err != nil {
		return nil, err
	}

	status, err := reconciler.Status()
	if err != nil {
		return nil, err
	}

	return &StatusReport{
		IPSetName:  s.cfg.General.IPSetName,
		ChainName:  s.cfg.General.ChainName,
		Firewall:   status,
		Interfaces: networking.SummarizeInterfaces(s.interfaces),
	}, nil
}

func (s *BlockerService) Apply() (*ApplyReport, error) {
	blocklist, err := lists.BuildBlocklist(s.cfg)
	if err != nil {
		return nil, err
	}

	reconciler, err := networking.BuildReconciler(s.cfg)
	if err != nil {
		return nil, err
	}

	count, err := reconciler.Apply(blocklist.Prefixes())
	if err != nil {
		return nil, err
	}

	return &ApplyReport{
		RangesApplied: count,
		TokensSkipped: blocklist.Skipped(),
	}, nil
}

func (s *BlockerService) Flush() error {
	reconciler, err := networking.BuildReconciler(s.cfg)
	if err != nil {
		return err
	}
	return reconciler.Flush(false)
}

func (s *BlockerService) AllowPort(portStr string) error {
	port, err := utils.ParsePort(portStr)
	if err != nil {
		return err
	}

	reconciler, err := networking.BuildReconciler(s.cfg)
	if err != nil {
		return err
	}
	return reconciler.AllowList().AllowPort(port)
}
