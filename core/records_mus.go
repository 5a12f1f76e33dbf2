package core

import (
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

// MUS serializers for persisted records. Field order is the wire order;
// append new fields at the end only.
var (
	JobMUS             = jobMUS{}
	ExtractedRecordMUS = extractedRecordMUS{}
	ChunkAuditMUS      = chunkAuditMUS{}
)

type jobMUS struct{}

func (jobMUS) Marshal(v Job, bs []byte) (n int) {
	w := musWriter{bs: bs}
	w.string(v.SourceID)
	w.string(v.CommunityID)
	w.string(v.URL)
	w.int(int(v.Status))
	w.string(v.Failure)
	w.int(v.ChunkCount)
	w.int(v.ChunksProcessed)
	w.bool(v.Cleaned)
	w.time(v.CreatedAt)
	w.time(v.UpdatedAt)
	w.time(v.IngestedAt)
	w.string(v.FailureDetail)
	return w.n
}

func (jobMUS) Unmarshal(bs []byte) (v Job, n int, err error) {
	r := musReader{bs: bs}
	v.SourceID = r.string()
	v.CommunityID = r.string()
	v.URL = r.string()
	v.Status = SourceStatus(r.int())
	v.Failure = r.string()
	v.ChunkCount = r.int()
	v.ChunksProcessed = r.int()
	v.Cleaned = r.bool()
	v.CreatedAt = r.time()
	v.UpdatedAt = r.time()
	v.IngestedAt = r.time()
	v.FailureDetail = r.string()
	return v, r.n, r.err
}

func (jobMUS) Size(v Job) (size int) {
	return ord.String.Size(v.SourceID) +
		ord.String.Size(v.CommunityID) +
		ord.String.Size(v.URL) +
		varint.Int.Size(int(v.Status)) +
		ord.String.Size(v.Failure) +
		varint.Int.Size(v.ChunkCount) +
		varint.Int.Size(v.ChunksProcessed) +
		ord.Bool.Size(v.Cleaned) +
		sizeTime(v.CreatedAt) +
		sizeTime(v.UpdatedAt) +
		sizeTime(v.IngestedAt) +
		ord.String.Size(v.FailureDetail)
}

type extractedRecordMUS struct{}

func (extractedRecordMUS) Marshal(v ExtractedRecord, bs []byte) (n int) {
	w := musWriter{bs: bs}
	w.string(v.Author)
	w.string(v.Site)
	w.string(v.PublishDate)
	w.string(v.MainTopic)
	w.string(v.ParentTopic)
	w.string(v.Field)
	w.int(len(v.Keywords))
	for _, k := range v.Keywords {
		w.string(k.Keyword)
		w.string(k.Definition)
		w.string(k.RelationToTopic)
	}
	w.int(len(v.MajorInsights))
	for _, i := range v.MajorInsights {
		w.string(i.Insight)
		w.string(i.Concept)
	}
	w.strings(v.SupportingDetails)
	w.strings(v.RelevantQuotations)
	w.strings(v.ExternalLinks)
	return w.n
}

func (extractedRecordMUS) Unmarshal(bs []byte) (v ExtractedRecord, n int, err error) {
	r := musReader{bs: bs}
	v.Author = r.string()
	v.Site = r.string()
	v.PublishDate = r.string()
	v.MainTopic = r.string()
	v.ParentTopic = r.string()
	v.Field = r.string()

	count := r.length()
	v.Keywords = make([]Keyword, 0, count)
	for i := 0; i < count && r.err == nil; i++ {
		v.Keywords = append(v.Keywords, Keyword{
			Keyword:         r.string(),
			Definition:      r.string(),
			RelationToTopic: r.string(),
		})
	}

	count = r.length()
	v.MajorInsights = make([]Insight, 0, count)
	for i := 0; i < count && r.err == nil; i++ {
		v.MajorInsights = append(v.MajorInsights, Insight{
			Insight: r.string(),
			Concept: r.string(),
		})
	}

	v.SupportingDetails = r.strings()
	v.RelevantQuotations = r.strings()
	v.ExternalLinks = r.strings()
	return v, r.n, r.err
}

func (extractedRecordMUS) Size(v ExtractedRecord) (size int) {
	size = ord.String.Size(v.Author) +
		ord.String.Size(v.Site) +
		ord.String.Size(v.PublishDate) +
		ord.String.Size(v.MainTopic) +
		ord.String.Size(v.ParentTopic) +
		ord.String.Size(v.Field)
	size += varint.Int.Size(len(v.Keywords))
	for _, k := range v.Keywords {
		size += ord.String.Size(k.Keyword) + ord.String.Size(k.Definition) + ord.String.Size(k.RelationToTopic)
	}
	size += varint.Int.Size(len(v.MajorInsights))
	for _, i := range v.MajorInsights {
		size += ord.String.Size(i.Insight) + ord.String.Size(i.Concept)
	}
	return size + sizeStrings(v.SupportingDetails) + sizeStrings(v.RelevantQuotations) + sizeStrings(v.ExternalLinks)
}

type chunkAuditMUS struct{}

func (chunkAuditMUS) Marshal(v ChunkAudit, bs []byte) (n int) {
	w := musWriter{bs: bs}
	w.string(v.SourceID)
	w.int(v.Index)
	w.string(v.Text)
	w.string(v.Failure)
	w.bool(v.Record != nil)
	if v.Record != nil {
		w.n += ExtractedRecordMUS.Marshal(*v.Record, w.bs[w.n:])
	}
	return w.n
}

func (chunkAuditMUS) Unmarshal(bs []byte) (v ChunkAudit, n int, err error) {
	r := musReader{bs: bs}
	v.SourceID = r.string()
	v.Index = r.int()
	v.Text = r.string()
	v.Failure = r.string()
	if r.bool() && r.err == nil {
		record, m, err := ExtractedRecordMUS.Unmarshal(r.bs[r.n:])
		r.n += m
		r.err = err
		if err == nil {
			v.Record = &record
		}
	}
	return v, r.n, r.err
}

func (chunkAuditMUS) Size(v ChunkAudit) (size int) {
	size = ord.String.Size(v.SourceID) +
		varint.Int.Size(v.Index) +
		ord.String.Size(v.Text) +
		ord.String.Size(v.Failure) +
		ord.Bool.Size(v.Record != nil)
	if v.Record != nil {
		size += ExtractedRecordMUS.Size(*v.Record)
	}
	return size
}

// musWriter appends primitives to a pre-sized buffer.
type musWriter struct {
	bs []byte
	n  int
}

func (w *musWriter) string(s string) { w.n += ord.String.Marshal(s, w.bs[w.n:]) }
func (w *musWriter) int(i int)       { w.n += varint.Int.Marshal(i, w.bs[w.n:]) }
func (w *musWriter) bool(b bool)     { w.n += ord.Bool.Marshal(b, w.bs[w.n:]) }

// Timestamps are stored as Unix microseconds.
func (w *musWriter) time(t time.Time) { w.n += varint.Int64.Marshal(t.UnixMicro(), w.bs[w.n:]) }

func (w *musWriter) strings(ss []string) {
	w.int(len(ss))
	for _, s := range ss {
		w.string(s)
	}
}

// musReader reads primitives in order, stopping at the first error.
type musReader struct {
	bs  []byte
	n   int
	err error
}

func (r *musReader) string() (v string) {
	if r.err != nil {
		return
	}
	var m int
	v, m, r.err = ord.String.Unmarshal(r.bs[r.n:])
	r.n += m
	return
}

func (r *musReader) int() (v int) {
	if r.err != nil {
		return
	}
	var m int
	v, m, r.err = varint.Int.Unmarshal(r.bs[r.n:])
	r.n += m
	return
}

func (r *musReader) bool() (v bool) {
	if r.err != nil {
		return
	}
	var m int
	v, m, r.err = ord.Bool.Unmarshal(r.bs[r.n:])
	r.n += m
	return
}

func (r *musReader) time() time.Time {
	if r.err != nil {
		return time.Time{}
	}
	v, m, err := varint.Int64.Unmarshal(r.bs[r.n:])
	r.n += m
	r.err = err
	return time.UnixMicro(v).UTC()
}

// length reads a collection length, rejecting values that cannot fit in the
// remaining input.
func (r *musReader) length() int {
	l := r.int()
	if r.err == nil && (l < 0 || l > len(r.bs)-r.n) {
		r.err = ErrCorruptRecord
		return 0
	}
	return l
}

func (r *musReader) strings() []string {
	count := r.length()
	ss := make([]string, 0, count)
	for i := 0; i < count && r.err == nil; i++ {
		ss = append(ss, r.string())
	}
	return ss
}

func sizeTime(t time.Time) int {
	return varint.Int64.Size(t.UnixMicro())
}

func sizeStrings(ss []string) (size int) {
	size = varint.Int.Size(len(ss))
	for _, s := range ss {
		size += ord.String.Size(s)
	}
	return size
}
