package squad_test

import (
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"ensemble/squad"
)

var _ = Describe("Loader", func() {
	var loader *squad.Loader

	BeforeEach(func() {
		loader = squad.NewLoader(squadsDir)
	})

	It("loads a full squad directory", func() {
		writeProjectFile("squads/support-team/squad.yaml", supportSquadYAML)
		writeProjectFile("squads/support-team/members.yaml", supportMembersYAML)
		writeProjectFile("squads/support-team/overrides/defaults.yaml",
			"default_overrides:\n  serverMessages:\n    - end-of-call-report\n")
		writeProjectFile("squads/support-team/routing/main.yaml",
			"fallback: receptionist\n")

		cfg, err := loader.Load("support-team", "development")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Name).To(Equal("support-team"))
		Expect(cfg.Config["name"]).To(Equal("support-team"))
		Expect(cfg.Members).To(HaveLen(2))
		Expect(cfg.Members[0]["assistant_name"]).To(Equal("receptionist"))
		Expect(cfg.Overrides).To(HaveKey("defaults"))
		Expect(cfg.Routing).To(HaveKey("main"))
	})

	It("applies the environment overlay to squad.yaml", func() {
		writeProjectFile("squads/support-team/squad.yaml", supportSquadYAML)
		writeProjectFile("squads/support-team/members.yaml", supportMembersYAML)

		cfg, err := loader.Load("support-team", "production")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Config["description"]).To(Equal("Production support squad"))
		Expect(cfg.Config).NotTo(HaveKey("environments"))
	})

	It("treats missing optional files as empty", func() {
		writeProjectFile("squads/bare/squad.yaml", "name: bare\n")

		cfg, err := loader.Load("bare", "development")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Members).To(BeEmpty())
		Expect(cfg.Overrides).To(BeEmpty())
		Expect(cfg.Routing).To(BeEmpty())
	})

	It("reports a missing squad directory", func() {
		_, err := loader.Load("ghost", "development")
		Expect(err).To(MatchError(ContainSubstring("squad directory not found")))
	})

	It("rejects a malformed members list", func() {
		writeProjectFile("squads/broken/squad.yaml", "name: broken\n")
		writeProjectFile("squads/broken/members.yaml", "members:\n  - just-a-string\n")

		_, err := loader.Load("broken", "development")
		Expect(err).To(MatchError(ContainSubstring("member 0 is not a mapping")))
	})

	It("lists squad directories", func() {
		writeProjectFile("squads/alpha/squad.yaml", "name: alpha\n")
		writeProjectFile("squads/beta/squad.yaml", "name: beta\n")

		names, err := loader.List()
		Expect(err).NotTo(HaveOccurred())
		Expect(names).To(ConsistOf("alpha", "beta"))
	})

	It("lists nothing when the base directory is absent", func() {
		names, err := loader.List()
		Expect(err).NotTo(HaveOccurred())
		Expect(names).To(BeEmpty())
	})
})

var _ = Describe("Validate", func() {
	load := func(name string) *squad.Config {
		cfg, err := squad.NewLoader(squadsDir).Load(name, "development")
		Expect(err).NotTo(HaveOccurred())
		return cfg
	}

	It("accepts a well-formed squad", func() {
		writeAssistant("receptionist")
		writeAssistant("billing")
		writeProjectFile("squads/support-team/squad.yaml", supportSquadYAML)
		writeProjectFile("squads/support-team/members.yaml", supportMembersYAML)

		Expect(load("support-team").Validate(assistantsDir)).To(Succeed())
	})

	It("requires a name", func() {
		writeProjectFile("squads/anon/squad.yaml", "description: unnamed\n")
		writeProjectFile("squads/anon/members.yaml", "members:\n  - assistant_name: receptionist\n")
		writeAssistant("receptionist")

		err := load("anon").Validate(assistantsDir)
		Expect(err).To(MatchError(ContainSubstring("missing required field 'name'")))
	})

	It("requires at least one member", func() {
		writeProjectFile("squads/empty/squad.yaml", "name: empty\n")

		err := load("empty").Validate(assistantsDir)
		Expect(err).To(MatchError(ContainSubstring("names no members")))
	})

	It("requires every member to name an assistant", func() {
		writeProjectFile("squads/nameless/squad.yaml", "name: nameless\n")
		writeProjectFile("squads/nameless/members.yaml", "members:\n  - role: triage\n")

		err := load("nameless").Validate(assistantsDir)
		Expect(err).To(MatchError(ContainSubstring("member 0 has no assistant_name")))
	})

	It("rejects duplicate members", func() {
		writeAssistant("receptionist")
		writeProjectFile("squads/doubled/squad.yaml", "name: doubled\n")
		writeProjectFile("squads/doubled/members.yaml",
			"members:\n  - assistant_name: receptionist\n  - assistant_name: receptionist\n")

		err := load("doubled").Validate(assistantsDir)
		Expect(err).To(MatchError(ContainSubstring("duplicate member 'receptionist'")))
	})

	It("requires member assistant directories to exist", func() {
		writeProjectFile("squads/dangling/squad.yaml", "name: dangling\n")
		writeProjectFile("squads/dangling/members.yaml", "members:\n  - assistant_name: ghost\n")

		err := load("dangling").Validate(assistantsDir)
		Expect(err).To(MatchError(ContainSubstring("member assistant 'ghost' not found at " +
			filepath.Join(assistantsDir, "ghost"))))
	})
})
