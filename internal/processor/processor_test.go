package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recruit-agent-go/internal/config"
	"recruit-agent-go/internal/storage"
	"recruit-agent-go/internal/storage/models"
	"recruit-agent-go/internal/types"
)

type fakeStore struct {
	submissions map[string]*models.ResumeSubmission
	statuses    map[string][]string
	bound       map[string]uint
	upsertErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		submissions: map[string]*models.ResumeSubmission{},
		statuses:    map[string][]string{},
		bound:       map[string]uint{},
	}
}

func (f *fakeStore) CreateResumeSubmission(_ context.Context, submission *models.ResumeSubmission) error {
	f.submissions[submission.SubmissionUUID] = submission
	return nil
}

func (f *fakeStore) UpdateSubmissionStatus(_ context.Context, submissionUUID, status, errorMessage string) error {
	f.statuses[submissionUUID] = append(f.statuses[submissionUUID], status)
	if sub, ok := f.submissions[submissionUUID]; ok {
		sub.ProcessingStatus = status
		sub.ErrorMessage = errorMessage
	}
	return nil
}

func (f *fakeStore) BindSubmissionCandidate(_ context.Context, submissionUUID string, candidateID uint) error {
	f.bound[submissionUUID] = candidateID
	return nil
}

func (f *fakeStore) UpsertCandidateFromProfile(_ context.Context, profile *types.CandidateProfile, _, _ string) (*models.Candidate, error) {
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	return &models.Candidate{ID: 42, Name: profile.Name}, nil
}

type fakeObjects struct {
	files     map[string][]byte
	uploadMD5 string
}

func (f *fakeObjects) UploadResumeStreaming(_ context.Context, submissionUUID, fileExt string, reader io.Reader, _ int64) (string, string, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", "", err
	}
	key := "resumes/" + submissionUUID + fileExt
	if f.files == nil {
		f.files = map[string][]byte{}
	}
	f.files[key] = data
	return key, f.uploadMD5, nil
}

func (f *fakeObjects) GetResumeFile(_ context.Context, objectKey string) ([]byte, error) {
	data, ok := f.files[objectKey]
	if !ok {
		return nil, fmt.Errorf("对象 %s 不存在", objectKey)
	}
	return data, nil
}

type fakeDeduper struct {
	exists      bool
	checkErr    error
	removed     []string
	bindings    map[string]uint
	candidateID string
}

func (f *fakeDeduper) CheckAndAddResumeMD5(_ context.Context, _ string) (bool, error) {
	return f.exists, f.checkErr
}

func (f *fakeDeduper) RemoveResumeMD5(_ context.Context, md5Hex string) error {
	f.removed = append(f.removed, md5Hex)
	return nil
}

func (f *fakeDeduper) BindResumeMD5Candidate(_ context.Context, md5Hex string, candidateID uint) error {
	if f.bindings == nil {
		f.bindings = map[string]uint{}
	}
	f.bindings[md5Hex] = candidateID
	return nil
}

func (f *fakeDeduper) GetResumeMD5Candidate(_ context.Context, _ string) (string, error) {
	return f.candidateID, nil
}

type fakePublisher struct {
	published []storage.ResumeUploadedMessage
	err       error
}

func (f *fakePublisher) PublishJSON(_ context.Context, _, _ string, data interface{}, _ bool) error {
	if f.err != nil {
		return f.err
	}
	msg, ok := data.(storage.ResumeUploadedMessage)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", data)
	}
	f.published = append(f.published, msg)
	return nil
}

type fakeExtractor struct {
	text string
	err  error
}

func (f *fakeExtractor) ExtractTextFromBytes(_ context.Context, _ []byte, _ string) (string, map[string]interface{}, error) {
	return f.text, nil, f.err
}

type fakeProfileParser struct {
	profile *types.CandidateProfile
	err     error
}

func (f *fakeProfileParser) ParseProfile(_ context.Context, _ string) (*types.CandidateProfile, error) {
	return f.profile, f.err
}

func mqConfig() *config.RabbitMQConfig {
	return &config.RabbitMQConfig{
		ResumeEventsExchange: "recruit.resume.exchange",
		ResumeUploadedKey:    "resume.uploaded",
		ResumeParsingQueue:   "q.resume_parsing",
		PrefetchCount:        10,
	}
}

func TestUploadSuccess(t *testing.T) {
	store := newFakeStore()
	objects := &fakeObjects{uploadMD5: "abc123"}
	deduper := &fakeDeduper{}
	publisher := &fakePublisher{}
	s := NewIntakeService(store, objects, deduper, publisher, mqConfig())

	result, err := s.Upload(context.Background(), "简历.pdf", bytes.NewReader([]byte("%PDF-1.4")), 8)
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionStatusPendingParsing, result.Status)
	require.NotEmpty(t, result.SubmissionUUID)

	sub, ok := store.submissions[result.SubmissionUUID]
	require.True(t, ok, "应登记简历流水")
	assert.Equal(t, "abc123", sub.RawFileMD5)

	require.Len(t, publisher.published, 1)
	assert.Equal(t, result.SubmissionUUID, publisher.published[0].SubmissionUUID)
	assert.Equal(t, "abc123", publisher.published[0].RawFileMD5)
}

func TestUploadRejectsBadInput(t *testing.T) {
	s := NewIntakeService(newFakeStore(), &fakeObjects{}, nil, nil, mqConfig())

	_, err := s.Upload(context.Background(), "resume.docx", bytes.NewReader(nil), 10)
	require.Error(t, err, "非PDF扩展名应被拒绝")

	_, err = s.Upload(context.Background(), "resume.pdf", bytes.NewReader(nil), 11<<20)
	require.Error(t, err, "超过大小上限应被拒绝")
}

func TestUploadDuplicate(t *testing.T) {
	store := newFakeStore()
	deduper := &fakeDeduper{exists: true, candidateID: "7"}
	publisher := &fakePublisher{}
	s := NewIntakeService(store, &fakeObjects{uploadMD5: "dup"}, deduper, publisher, mqConfig())

	result, err := s.Upload(context.Background(), "dup.pdf", bytes.NewReader([]byte("x")), 1)
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionStatusDuplicate, result.Status)
	assert.Equal(t, uint(7), result.CandidateID, "重复上传应回填已有候选人")
	assert.Empty(t, publisher.published, "重复上传不应发布解析事件")

	sub := store.submissions[result.SubmissionUUID]
	require.NotNil(t, sub)
	require.NotNil(t, sub.CandidateID)
	assert.Equal(t, uint(7), *sub.CandidateID)
}

func TestUploadPublishFailureRollsBack(t *testing.T) {
	store := newFakeStore()
	deduper := &fakeDeduper{}
	publisher := &fakePublisher{err: fmt.Errorf("broker不可用")}
	s := NewIntakeService(store, &fakeObjects{uploadMD5: "m1"}, deduper, publisher, mqConfig())

	_, err := s.Upload(context.Background(), "r.pdf", bytes.NewReader([]byte("x")), 1)
	require.Error(t, err)
	assert.Contains(t, deduper.removed, "m1", "发布失败应回滚MD5记录")

	var statuses []string
	for _, history := range store.statuses {
		statuses = history
	}
	assert.Contains(t, statuses, models.SubmissionStatusFailed)
}

func newTestConsumer(store *fakeStore, objects *fakeObjects, deduper *fakeDeduper,
	parser *fakeProfileParser) *ParseConsumer {
	return NewParseConsumer(store, objects, deduper,
		&fakeExtractor{text: "张三 backend@example.com 三年Go开发经验"}, parser, mqConfig())
}

func TestHandleMessageSuccess(t *testing.T) {
	store := newFakeStore()
	objects := &fakeObjects{files: map[string][]byte{"resumes/u1.pdf": []byte("%PDF")}}
	deduper := &fakeDeduper{}
	parser := &fakeProfileParser{profile: &types.CandidateProfile{Name: "张三", Email: "backend@example.com"}}
	c := newTestConsumer(store, objects, deduper, parser)

	payload, _ := json.Marshal(storage.ResumeUploadedMessage{
		SubmissionUUID: "u1",
		FilePathOSS:    "resumes/u1.pdf",
		RawFileMD5:     "m1",
	})
	require.True(t, c.HandleMessage(payload))

	assert.Equal(t, []string{models.SubmissionStatusParsing, models.SubmissionStatusCompleted}, store.statuses["u1"])
	assert.Equal(t, uint(42), store.bound["u1"], "流水应绑定候选人")
	assert.Equal(t, uint(42), deduper.bindings["m1"], "MD5应映射到候选人")
}

func TestHandleMessageParseFailure(t *testing.T) {
	store := newFakeStore()
	objects := &fakeObjects{files: map[string][]byte{"resumes/u2.pdf": []byte("%PDF")}}
	deduper := &fakeDeduper{}
	parser := &fakeProfileParser{err: fmt.Errorf("画像解析失败")}
	c := newTestConsumer(store, objects, deduper, parser)

	payload, _ := json.Marshal(storage.ResumeUploadedMessage{
		SubmissionUUID: "u2",
		FilePathOSS:    "resumes/u2.pdf",
		RawFileMD5:     "m2",
	})
	require.True(t, c.HandleMessage(payload), "业务失败记录后应确认消息")

	assert.Contains(t, store.statuses["u2"], models.SubmissionStatusFailed)
	assert.Contains(t, deduper.removed, "m2", "解析失败应释放MD5供重新上传")
}

func TestHandleMessageBadPayload(t *testing.T) {
	c := newTestConsumer(newFakeStore(), &fakeObjects{}, &fakeDeduper{}, &fakeProfileParser{})
	assert.True(t, c.HandleMessage([]byte("not-json")), "无法解码的消息应直接丢弃")
}
