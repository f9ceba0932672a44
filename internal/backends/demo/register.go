package demo

import "github.com/YoshitsuguKoike/buildhelper/internal/domain/backend"

// Register adds every demo backend to reg.
func Register(reg *backend.Registry) {
	reg.Register(backend.DomainSCM, "git", NewGit)
	reg.Register(backend.DomainSCM, "p4", NewP4)
	reg.Register(backend.DomainAnalysis, "sonarqube", NewSonarqube)
	reg.Register(backend.DomainAnalysis, "klocwork", NewKlocwork)
	reg.Register(backend.DomainReview, "bitbucket", NewBitbucket)
	reg.Register(backend.DomainReview, "perforce-swarm", NewSwarm)
}
