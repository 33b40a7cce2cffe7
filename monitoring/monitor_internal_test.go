package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"reflect"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/alpidesim/sim"
)

type sampleStruct struct {
	field1 int
	field2 string
	field3 *sampleStruct
	field4 []sampleStruct
}

type sampleComponent struct {
	*sim.ComponentBase

	buffer  sim.Buffer
	buffer2 sim.Buffer
	unset   sim.Buffer
}

func (c *sampleComponent) Handle(_ sim.Event) error {
	return nil
}

func newSampleComponent(name string) *sampleComponent {
	return &sampleComponent{
		ComponentBase: sim.NewComponentBase(name),
		buffer:        sim.NewBuffer(name+".Buf", 10),
		buffer2:       sim.NewBuffer(name+".Buf2", 4),
	}
}

var _ = Describe("Monitor", func() {
	var (
		m      *Monitor
		engine *sim.SerialEngine
	)

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		m.router().ServeHTTP(rec, req)

		return rec
	}

	BeforeEach(func() {
		engine = sim.NewSerialEngine()
		m = NewMonitor()
		m.RegisterEngine(engine)
	})

	It("should register components and internal buffers", func() {
		m.RegisterComponent(newSampleComponent("Comp"))

		Expect(m.components).To(HaveLen(1))
		Expect(m.buffers).To(HaveLen(2))
	})

	It("should list components", func() {
		m.RegisterComponent(newSampleComponent("A"))
		m.RegisterComponent(newSampleComponent("B"))

		rsp := get("/api/list_components")

		Expect(rsp.Code).To(Equal(http.StatusOK))
		Expect(rsp.Body.String()).To(Equal(`["A","B"]`))
	})

	It("should report the current time", func() {
		sim.ScheduleStop(engine, 1234)
		Expect(engine.Run()).To(Succeed())

		Expect(get("/api/now").Body.String()).To(Equal(`{"now":1234}`))
	})

	It("should answer 404 for unknown components and chips", func() {
		Expect(get("/api/component/X").Code).To(Equal(http.StatusNotFound))
		Expect(get("/api/chip/3").Code).To(Equal(http.StatusNotFound))
	})

	It("should sort buffers by fill level", func() {
		c := newSampleComponent("Comp")
		c.buffer.Push(1)
		c.buffer.Push(2)
		c.buffer.Push(3)
		c.buffer2.Push(1)
		c.buffer2.Push(2)
		m.RegisterComponent(c)

		var byPercent []bufferRsp
		Expect(json.Unmarshal(get("/api/buffers").Body.Bytes(), &byPercent)).
			To(Succeed())
		Expect(byPercent).To(Equal([]bufferRsp{
			{Buffer: "Comp.Buf2", Level: 2, Cap: 4},
			{Buffer: "Comp.Buf", Level: 3, Cap: 10},
		}))

		var byLevel []bufferRsp
		Expect(json.Unmarshal(get("/api/buffers?sort=level&limit=1").Body.Bytes(),
			&byLevel)).To(Succeed())
		Expect(byLevel).To(Equal([]bufferRsp{
			{Buffer: "Comp.Buf", Level: 3, Cap: 10},
		}))

		Expect(get("/api/buffers?offset=5").Body.String()).To(Equal("[]"))
		Expect(get("/api/buffers?sort=name").Code).To(Equal(http.StatusBadRequest))
	})

	It("should list progress bars until they complete", func() {
		bar := m.CreateProgressBar("Events", 10)
		bar.IncrementInProgress(3)
		bar.MoveInProgressToFinished(2)

		var bars []ProgressBarStatus
		Expect(json.Unmarshal(get("/api/progress").Body.Bytes(), &bars)).
			To(Succeed())
		Expect(bars).To(HaveLen(1))
		Expect(bars[0].Name).To(Equal("Events"))
		Expect(bars[0].Finished).To(Equal(uint64(2)))
		Expect(bars[0].InProgress).To(Equal(uint64(1)))

		m.CompleteProgressBar(bar)
		Expect(get("/api/progress").Body.String()).To(Equal("[]"))
	})

	It("should serve the web page", func() {
		rsp := get("/")

		Expect(rsp.Code).To(Equal(http.StatusOK))
		Expect(rsp.Body.String()).To(HavePrefix("<!DOCTYPE html>"))
	})

	It("should serve on a random port", func() {
		url, err := m.StartServer()
		Expect(err).NotTo(HaveOccurred())
		Expect(url).To(HavePrefix("http://localhost:"))

		rsp, err := http.Get(url + "/api/now")
		Expect(err).NotTo(HaveOccurred())
		body, err := io.ReadAll(rsp.Body)
		Expect(err).NotTo(HaveOccurred())
		rsp.Body.Close()
		Expect(string(body)).To(Equal(`{"now":0}`))

		Expect(m.StopServer(context.Background())).To(Succeed())
		Expect(m.URL()).To(BeEmpty())
	})

	It("should walk int fields", func() {
		s := &sampleStruct{
			field1: 1,
		}

		elem, err := m.walkFields(s, "field1")

		Expect(err).To(BeNil())
		Expect(elem.Kind()).To(Equal(reflect.Int))
		Expect(elem.Int()).To(Equal(int64(1)))
	})

	It("should walk string fields", func() {
		s := &sampleStruct{
			field2: "abc",
		}

		elem, err := m.walkFields(s, "field2")

		Expect(err).To(BeNil())
		Expect(elem.Kind()).To(Equal(reflect.String))
		Expect(elem.String()).To(Equal("abc"))
	})

	It("should walk recursively", func() {
		s := &sampleStruct{
			field3: &sampleStruct{
				field1: 1,
			},
		}

		elem, err := m.walkFields(s, "field3.field1")

		Expect(err).To(BeNil())
		Expect(elem.Int()).To(Equal(int64(1)))
	})

	It("should walk slice recursively", func() {
		s := &sampleStruct{
			field4: []sampleStruct{{
				field4: []sampleStruct{
					{field1: 1},
				},
			}, {}},
		}

		elem, err := m.walkFields(s, "field4.0.field4.0.field1")

		Expect(err).To(BeNil())
		Expect(elem.Int()).To(Equal(int64(1)))
	})

	It("should reject a bad slice index", func() {
		s := &sampleStruct{field4: []sampleStruct{{}}}

		_, err := m.walkFields(s, "field4.x")

		Expect(err).To(Equal(fieldFormatError{}))
	})
})

var _ = Describe("ProgressBar", func() {
	It("should log every tenth", func() {
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		bar := NewProgressBar("Events", 20).WithLogger(logger)

		bar.IncrementFinished(1)
		Expect(buf.Len()).To(BeZero())

		bar.IncrementFinished(1)
		Expect(buf.String()).To(ContainSubstring("Events: 2/20 (10%)"))

		buf.Reset()
		bar.IncrementFinished(15)
		Expect(buf.String()).To(ContainSubstring("Events: 17/20 (85%)"))
		Expect(bar.Percent()).To(BeNumerically("~", 85))
	})
})
