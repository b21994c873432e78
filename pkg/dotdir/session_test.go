package dotdir_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/graphchat/pkg/dotdir"
)

var _ = Describe("dotdir.Manager session", func() {
	var tmpDir string
	var m *dotdir.Manager

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "dotdir-session-*")
		Expect(err).NotTo(HaveOccurred())
		m = dotdir.NewManager()
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	It("returns nil when no session has been started", func() {
		state, err := m.LoadSession(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(state).To(BeNil())
	})

	It("saves and loads a session", func() {
		state := dotdir.NewSessionState()
		Expect(state.ID).NotTo(BeEmpty())
		Expect(m.SaveSession(state, tmpDir)).To(Succeed())

		loaded, err := m.LoadSession(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.ID).To(Equal(state.ID))
		Expect(loaded.StartedAt.Equal(state.StartedAt)).To(BeTrue())
	})

	It("rejects invalid session files", func() {
		Expect(os.WriteFile(filepath.Join(tmpDir, "session.json"), []byte("not json"), 0o600)).To(Succeed())
		_, err := m.LoadSession(tmpDir)
		Expect(err).To(HaveOccurred())

		Expect(os.WriteFile(filepath.Join(tmpDir, "session.json"), []byte(`{"id":""}`), 0o600)).To(Succeed())
		_, err = m.LoadSession(tmpDir)
		Expect(err).To(HaveOccurred())
	})

	It("refuses to save a nil session", func() {
		Expect(m.SaveSession(nil, tmpDir)).NotTo(Succeed())
	})

	It("starts a session once and then keeps returning it", func() {
		first, err := m.CurrentSession(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		second, err := m.CurrentSession(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(second.ID).To(Equal(first.ID))
	})

	It("clears the session", func() {
		first, err := m.CurrentSession(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		Expect(m.ClearSession(tmpDir)).To(Succeed())
		Expect(m.ClearSession(tmpDir)).To(Succeed())

		next, err := m.CurrentSession(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(next.ID).NotTo(Equal(first.ID))
	})

	Describe("ResolveSession", func() {
		It("prefers an explicit id", func() {
			id, err := m.ResolveSession("explicit", true, tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(Equal("explicit"))

			state, err := m.LoadSession(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(state).To(BeNil())
		})

		It("reuses the saved session", func() {
			first, err := m.CurrentSession(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			id, err := m.ResolveSession("", false, tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(Equal(first.ID))
		})

		It("starts over when asked", func() {
			first, err := m.CurrentSession(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			id, err := m.ResolveSession("", true, tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(id).NotTo(Equal(first.ID))
		})
	})
})
