package state_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"ensemble/config"
	"ensemble/state"
	"ensemble/store"
)

const assistantYAML = `name: receptionist
model:
  provider: openai
  model: gpt-4o
voice:
  provider: elevenlabs
  voice_id: voice-123
`

var _ = Describe("Manager", func() {
	var manager *state.Manager

	BeforeEach(func() {
		manager = state.NewAssistantManager(tempDir)
	})

	Describe("Get", func() {
		It("returns a zero record for an undeployed unit", func() {
			writeUnit("receptionist", "assistant.yaml", assistantYAML)

			info, err := manager.Get("receptionist", "production")
			Expect(err).NotTo(HaveOccurred())
			Expect(info.IsDeployed()).To(BeFalse())
			Expect(info.Version).To(Equal(0))
		})

		It("reads an existing deployment record", func() {
			writeUnit("receptionist", "assistant.yaml", assistantYAML+`
_vapi:
  environments:
    production:
      id: asst-abc
      deployed_at: "2026-08-01T10:00:00Z"
      deployed_by: alice
      version: 3
`)

			info, err := manager.Get("receptionist", "production")
			Expect(err).NotTo(HaveOccurred())
			Expect(info.IsDeployed()).To(BeTrue())
			Expect(info.ID).To(Equal("asst-abc"))
			Expect(info.DeployedBy).To(Equal("alice"))
			Expect(info.Version).To(Equal(3))
		})

		It("rejects unknown environments", func() {
			writeUnit("receptionist", "assistant.yaml", assistantYAML)

			_, err := manager.Get("receptionist", "qa")
			Expect(err).To(MatchError(ContainSubstring("unknown environment 'qa'")))
		})

		It("reports a missing config file", func() {
			_, err := manager.Get("ghost", "production")
			Expect(err).To(MatchError(ContainSubstring("assistant config not found")))
		})
	})

	Describe("MarkDeployed", func() {
		It("stamps id, time, user, and version", func() {
			writeUnit("receptionist", "assistant.yaml", assistantYAML)

			info, err := manager.MarkDeployed("receptionist", "production", "asst-new")
			Expect(err).NotTo(HaveOccurred())
			Expect(info.ID).To(Equal("asst-new"))
			Expect(info.Version).To(Equal(1))
			Expect(info.DeployedBy).NotTo(BeEmpty())

			deployedAt, err := time.Parse(time.RFC3339, info.DeployedAt)
			Expect(err).NotTo(HaveOccurred())
			Expect(deployedAt).To(BeTemporally("~", time.Now().UTC(), time.Minute))
		})

		It("increments the version on redeploy", func() {
			writeUnit("receptionist", "assistant.yaml", assistantYAML)

			_, err := manager.MarkDeployed("receptionist", "staging", "asst-1")
			Expect(err).NotTo(HaveOccurred())
			info, err := manager.MarkDeployed("receptionist", "staging", "asst-2")
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Version).To(Equal(2))
			Expect(info.ID).To(Equal("asst-2"))
		})

		It("persists state without disturbing the rest of the document", func() {
			writeUnit("receptionist", "assistant.yaml", assistantYAML)

			_, err := manager.MarkDeployed("receptionist", "production", "asst-new")
			Expect(err).NotTo(HaveOccurred())

			doc, err := config.LoadMapping(filepath.Join(tempDir, "receptionist", "assistant.yaml"))
			Expect(err).NotTo(HaveOccurred())
			Expect(doc["name"]).To(Equal("receptionist"))
			model, ok := doc["model"].(map[string]any)
			Expect(ok).To(BeTrue())
			Expect(model["provider"]).To(Equal("openai"))

			reread, err := manager.Get("receptionist", "production")
			Expect(err).NotTo(HaveOccurred())
			Expect(reread.ID).To(Equal("asst-new"))
			Expect(reread.Version).To(Equal(1))
		})

		It("tracks environments independently", func() {
			writeUnit("receptionist", "assistant.yaml", assistantYAML)

			_, err := manager.MarkDeployed("receptionist", "development", "asst-dev")
			Expect(err).NotTo(HaveOccurred())
			_, err = manager.MarkDeployed("receptionist", "production", "asst-prod")
			Expect(err).NotTo(HaveOccurred())

			summary, err := manager.StatusSummary("receptionist")
			Expect(err).NotTo(HaveOccurred())
			Expect(summary["development"].ID).To(Equal("asst-dev"))
			Expect(summary["production"].ID).To(Equal("asst-prod"))
			Expect(summary["staging"].IsDeployed()).To(BeFalse())
		})
	})

	Describe("ClearDeployment", func() {
		It("removes the record for one environment only", func() {
			writeUnit("receptionist", "assistant.yaml", assistantYAML)

			_, err := manager.MarkDeployed("receptionist", "staging", "asst-1")
			Expect(err).NotTo(HaveOccurred())
			_, err = manager.MarkDeployed("receptionist", "production", "asst-2")
			Expect(err).NotTo(HaveOccurred())

			Expect(manager.ClearDeployment("receptionist", "staging")).To(Succeed())

			staging, err := manager.Get("receptionist", "staging")
			Expect(err).NotTo(HaveOccurred())
			Expect(staging.IsDeployed()).To(BeFalse())

			production, err := manager.Get("receptionist", "production")
			Expect(err).NotTo(HaveOccurred())
			Expect(production.ID).To(Equal("asst-2"))
		})
	})

	Describe("event recording", func() {
		It("appends deploy and release events to the audit log", func() {
			writeUnit("receptionist", "assistant.yaml", assistantYAML)

			bundle := store.NewMemoryBundle()
			manager.SetEventStore(bundle.Events)

			_, err := manager.MarkDeployed("receptionist", "production", "asst-new")
			Expect(err).NotTo(HaveOccurred())
			Expect(manager.ClearDeployment("receptionist", "production")).To(Succeed())

			events, err := bundle.Events.EventsFor("receptionist")
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(HaveLen(2))
			Expect(events[0].Action).To(Equal("deploy"))
			Expect(events[0].Kind).To(Equal("assistant"))
			Expect(events[0].VendorID).To(Equal("asst-new"))
			Expect(events[0].Version).To(Equal(1))
			Expect(events[1].Action).To(Equal("release"))
		})
	})

	Describe("Exists", func() {
		It("reports whether the unit's config file is present", func() {
			writeUnit("receptionist", "assistant.yaml", assistantYAML)

			Expect(manager.Exists("receptionist")).To(BeTrue())
			Expect(manager.Exists("ghost")).To(BeFalse())
		})
	})

	Describe("squad manager", func() {
		It("tracks state in squad.yaml", func() {
			squads := state.NewSquadManager(tempDir)
			writeUnit("support-team", "squad.yaml", "name: support-team\n")

			info, err := squads.MarkDeployed("support-team", "production", "squad-xyz")
			Expect(err).NotTo(HaveOccurred())
			Expect(info.ID).To(Equal("squad-xyz"))

			_, err = os.Stat(filepath.Join(tempDir, "support-team", "squad.yaml"))
			Expect(err).NotTo(HaveOccurred())
		})
	})
})

var _ = Describe("IsValidEnvironment", func() {
	It("accepts the fixed environment set", func() {
		for _, env := range state.Environments {
			Expect(state.IsValidEnvironment(env)).To(BeTrue())
		}
		Expect(state.IsValidEnvironment("qa")).To(BeFalse())
		Expect(state.IsValidEnvironment("")).To(BeFalse())
	})
})
