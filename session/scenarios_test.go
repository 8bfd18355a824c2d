package session_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kvakvs/jkdefrag-go/itemmodel"
	"github.com/kvakvs/jkdefrag-go/observer"
	"github.com/kvakvs/jkdefrag-go/phase"
	"github.com/kvakvs/jkdefrag-go/session"
	"github.com/kvakvs/jkdefrag-go/units"
	"github.com/kvakvs/jkdefrag-go/voldriver"
)

// These specs are the §8 end-to-end scenarios (S1-S6), each built on a voldriver.SimDriver so the
// outcome is deterministic without touching a real volume.

func nonVirtualFragments(it *itemmodel.Item) []itemmodel.Fragment {
	var out []itemmodel.Fragment
	for _, f := range it.Fragments {
		if !f.IsVirtual() {
			out = append(out, f)
		}
	}
	return out
}

var _ = Describe("Simple defragment (S1)", func() {
	It("makes a two-fragment file contiguous without changing free space", func() {
		driver := voldriver.NewSimDriver(100, 4096)
		a := itemmodel.NewItem(itemmodel.ID{Inode: 1}, `C:\a.dat`)
		a.ClustersCount = 5
		a.ByteSize = 5 * 4096
		a.Fragments = []itemmodel.Fragment{{NextVCN: 3, LCN: 0}, {NextVCN: 5, LCN: 50}}
		driver.SetItem(a.ID, a.Fragments)

		host, err := session.Open(driver, observer.NullObserver{}, session.Options{FreeSpacePercentReserve: 10})
		Expect(err).NotTo(HaveOccurred())
		Expect(host.Tree().Insert(a)).To(Succeed())

		freeBefore := host.FreeClusters()
		Expect(phase.Defragment(host)).To(Succeed())

		frags := nonVirtualFragments(a)
		Expect(frags).To(HaveLen(1))
		Expect(units.Clusters64(frags[0].NextVCN)).To(Equal(a.ClustersCount))
		Expect(a.IsFragmented()).To(BeFalse())
		Expect(host.FreeClusters()).To(Equal(freeBefore))

		Expect(host.Close()).To(Succeed())
	})
})

var _ = Describe("Gap with unmovable (S2)", func() {
	It("places the fragmented file in a free run and leaves the unmovable item alone", func() {
		driver := voldriver.NewSimDriver(100, 4096)

		u := itemmodel.NewItem(itemmodel.ID{Inode: 1}, `C:\u.sys`)
		u.ClustersCount = 1
		u.IsUnmovable = true
		u.Fragments = []itemmodel.Fragment{{NextVCN: 1, LCN: 20}}
		driver.SetItem(u.ID, u.Fragments)

		b := itemmodel.NewItem(itemmodel.ID{Inode: 2}, `C:\b.dat`)
		b.ClustersCount = 4
		b.Fragments = []itemmodel.Fragment{{NextVCN: 2, LCN: 5}, {NextVCN: 4, LCN: 30}}
		driver.SetItem(b.ID, b.Fragments)

		host, err := session.Open(driver, observer.NullObserver{}, session.Options{})
		Expect(err).NotTo(HaveOccurred())
		Expect(host.Tree().Insert(u)).To(Succeed())
		Expect(host.Tree().Insert(b)).To(Succeed())

		Expect(phase.Defragment(host)).To(Succeed())

		Expect(u.FirstLCN()).To(Equal(itemmodel.LCN(20)))
		Expect(u.IsUnmovable).To(BeTrue())

		frags := nonVirtualFragments(b)
		Expect(frags).To(HaveLen(1))
		Expect(b.IsFragmented()).To(BeFalse())
		start := b.FirstLCN()
		Expect(start == 0 || start == 40).To(BeTrue(), "expected B at LCN 0 or 40, got %d", start)

		Expect(host.Close()).To(Succeed())
	})
})

var _ = Describe("Fixup moves out of the MFT zone (S3)", func() {
	It("relocates a file sitting in an MFT-excluded range into zone 1", func() {
		driver := voldriver.NewSimDriver(100, 4096)
		driver.SetMftGeometry(50, 50, 60, 0)

		f := itemmodel.NewItem(itemmodel.ID{Inode: 1}, `C:\f.dat`)
		f.ClustersCount = 2
		f.ByteSize = 2 * 4096
		f.Fragments = []itemmodel.Fragment{{NextVCN: 2, LCN: 55}}
		driver.SetItem(f.ID, f.Fragments)

		obs := &recordingObserver{}
		host, err := session.Open(driver, obs, session.Options{
			MftExcludes: []itemmodel.MftExclude{{Start: 50, End: 60}},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(host.Tree().Insert(f)).To(Succeed())
		host.SetZones(itemmodel.Zones{0, 10, 90, 100})

		Expect(phase.Fixup(host)).To(Succeed())
		Expect(host.Close()).To(Succeed())

		Expect(f.FirstLCN()).To(BeNumerically(">=", itemmodel.LCN(10)))
		Expect(f.IsFragmented()).To(BeFalse())

		Expect(obs.moves).To(ContainElement(moveCall{
			count: 2, fromLCN: 55, toLCN: f.FirstLCN(), fromVCN: 0,
		}))
	})
})

var _ = Describe("Sort by name (S4)", func() {
	It("orders three files alphabetically starting at the zone boundary", func() {
		driver := voldriver.NewSimDriver(100, 4096)

		aaa := itemmodel.NewItem(itemmodel.ID{Inode: 1}, `C:\aaa.dat`)
		aaa.LongName, aaa.ClustersCount = "aaa.dat", 2
		aaa.Fragments = []itemmodel.Fragment{{NextVCN: 2, LCN: 50}}
		driver.SetItem(aaa.ID, aaa.Fragments)

		bbb := itemmodel.NewItem(itemmodel.ID{Inode: 2}, `C:\bbb.dat`)
		bbb.LongName, bbb.ClustersCount = "bbb.dat", 3
		bbb.Fragments = []itemmodel.Fragment{{NextVCN: 3, LCN: 60}}
		driver.SetItem(bbb.ID, bbb.Fragments)

		ccc := itemmodel.NewItem(itemmodel.ID{Inode: 3}, `C:\ccc.dat`)
		ccc.LongName, ccc.ClustersCount = "ccc.dat", 1
		ccc.Fragments = []itemmodel.Fragment{{NextVCN: 1, LCN: 70}}
		driver.SetItem(ccc.ID, ccc.Fragments)

		host, err := session.Open(driver, observer.NullObserver{}, session.Options{})
		Expect(err).NotTo(HaveOccurred())
		Expect(host.Tree().Insert(aaa)).To(Succeed())
		Expect(host.Tree().Insert(bbb)).To(Succeed())
		Expect(host.Tree().Insert(ccc)).To(Succeed())
		host.SetZones(itemmodel.Zones{0, 10, 100, 100})

		Expect(phase.OptimizeSort(host, phase.SortByName)).To(Succeed())
		Expect(host.Close()).To(Succeed())

		Expect(aaa.FirstLCN()).To(Equal(itemmodel.LCN(10)))
		Expect(bbb.FirstLCN()).To(Equal(itemmodel.LCN(12)))
		Expect(ccc.FirstLCN()).To(Equal(itemmodel.LCN(15)))
	})
})

var _ = Describe("Space-hog classification (S5)", func() {
	It("classifies a large file as a hog and fixup places it in zone 2", func() {
		driver := voldriver.NewSimDriver(100, 4096)

		movie := itemmodel.NewItem(itemmodel.ID{Inode: 1}, `C:\movie.avi`)
		movie.LongName = "movie.avi"
		movie.ClustersCount = 5
		movie.ByteSize = 60 * 1024 * 1024
		movie.Fragments = []itemmodel.Fragment{{NextVCN: 5, LCN: 0}}
		driver.SetItem(movie.ID, movie.Fragments)

		host, err := session.Open(driver, observer.NullObserver{}, session.Options{
			FreeSpacePercentReserve: 10,
			Masks:                   phase.Masks{UseDefaultSpaceHogs: true},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(host.Tree().Insert(movie)).To(Succeed())

		Expect(phase.Analyze(host)).To(Succeed())
		Expect(movie.IsHog).To(BeTrue())

		zones := host.Zones()
		Expect(phase.Fixup(host)).To(Succeed())
		Expect(host.Close()).To(Succeed())

		Expect(movie.FirstLCN()).To(BeNumerically(">=", zones.Start(2)))
		Expect(movie.FirstLCN()).To(BeNumerically("<", zones.End(2)))
	})
})

var _ = Describe("Partial move retry (S6)", func() {
	It("recovers a silently partial move via the fragmented retry strategy", func() {
		driver := voldriver.NewSimDriver(100, 4096)

		c := itemmodel.NewItem(itemmodel.ID{Inode: 1}, `C:\c.dat`)
		c.ClustersCount = 5
		c.ByteSize = 5 * 4096
		c.Fragments = []itemmodel.Fragment{{NextVCN: 5, LCN: 0}}
		driver.SetItem(c.ID, c.Fragments)
		driver.FaultNextMove(c.ID)

		obs := &recordingObserver{}
		host, err := session.Open(driver, obs, session.Options{})
		Expect(err).NotTo(HaveOccurred())
		Expect(host.Tree().Insert(c)).To(Succeed())

		ok, err := host.MoveItem(c, 0, 5, 50, itemmodel.Up)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(host.Close()).To(Succeed())

		frags := nonVirtualFragments(c)
		Expect(frags).To(HaveLen(1))
		Expect(c.IsFragmented()).To(BeFalse())
		Expect(c.FirstLCN()).To(Equal(itemmodel.LCN(50)))

		Expect(obs.moveCount()).To(BeNumerically(">=", 2))
	})
})
