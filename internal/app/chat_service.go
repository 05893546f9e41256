package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"ragdesk/internal/ai"
	"ragdesk/internal/model"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrMessageEmpty         = errors.New("message content is empty")
	ErrMessageEnqueue       = errors.New("message enqueue failed")
)

// AsyncMessagePublisher hands a message to the persistence queue without
// blocking the request on a database write.
type AsyncMessagePublisher interface {
	Publish(ctx context.Context, msg model.Message) error
}

type ConversationHistoryCache interface {
	GetHistory(ctx context.Context, conversationID uint) ([]model.Message, bool, error)
	SetHistory(ctx context.Context, conversationID uint, messages []model.Message) error
	DeleteHistory(ctx context.Context, conversationID uint) error
	MarkDirty(ctx context.Context, conversationID uint) error
	IsDirty(ctx context.Context, conversationID uint) (bool, error)
}

// ConversationStore is the slice of the conversation repository the chat
// flow needs.
type ConversationStore interface {
	Create(conversation *model.Conversation) error
	ListByUserID(userID uint) ([]model.Conversation, error)
	GetByIDAndUserID(conversationID, userID uint) (*model.Conversation, error)
	UpdateTitle(conversationID uint, title string) error
	DeleteByIDAndUserID(conversationID, userID uint) error
}

// MessageStore is the read/delete slice of the message repository; chat
// never writes messages directly, the persistence worker does.
type MessageStore interface {
	ListByConversationID(conversationID uint, limit int) ([]model.Message, error)
	DeleteByConversationID(conversationID uint) error
	CountByConversationID(conversationID uint) (int64, error)
}

// Retriever supplies internal-document context for a user query.
type Retriever interface {
	AnswerWithContext(ctx context.Context, userQuery string) (*RetrievalResult, error)
}

// Completer is the opaque completion service: a message list in, the
// assistant's reply out, either whole or streamed chunk by chunk.
type Completer interface {
	Complete(ctx context.Context, cfg ai.ChatConfig, messages []ai.ChatMessage) (string, error)
	StreamComplete(ctx context.Context, cfg ai.ChatConfig, messages []ai.ChatMessage, onChunk func(chunk string) error) (string, error)
}

type ChatService struct {
	conversations ConversationStore
	messages      MessageStore
	publisher     AsyncMessagePublisher
	historyCache  ConversationHistoryCache
	retriever     Retriever
	completer     Completer
	chatCfg       ai.ChatConfig
	maxContext    int
	logger        *zap.Logger
}

func NewChatService(
	conversations ConversationStore,
	messages MessageStore,
	publisher AsyncMessagePublisher,
	historyCache ConversationHistoryCache,
	retriever Retriever,
	completer Completer,
	chatCfg ai.ChatConfig,
	maxContext int,
	logger *zap.Logger,
) *ChatService {
	if maxContext <= 0 {
		maxContext = 20
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatService{
		conversations: conversations,
		messages:      messages,
		publisher:     publisher,
		historyCache:  historyCache,
		retriever:     retriever,
		completer:     completer,
		chatCfg:       chatCfg,
		maxContext:    maxContext,
		logger:        logger,
	}
}

type CreateConversationInput struct {
	UserID uint
	Title  string
}

func (s *ChatService) CreateConversation(input CreateConversationInput) (*model.Conversation, error) {
	if input.UserID == 0 {
		return nil, ErrInvalidInput
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		title = "New Chat"
	}

	conversation := &model.Conversation{
		UserID: input.UserID,
		Title:  title,
	}
	if err := s.conversations.Create(conversation); err != nil {
		return nil, err
	}
	return conversation, nil
}

func (s *ChatService) ListConversations(userID uint) ([]model.Conversation, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	return s.conversations.ListByUserID(userID)
}

func (s *ChatService) DeleteConversation(ctx context.Context, userID, conversationID uint) error {
	if userID == 0 || conversationID == 0 {
		return ErrInvalidInput
	}
	conversation, err := s.conversations.GetByIDAndUserID(conversationID, userID)
	if err != nil {
		return err
	}
	if conversation == nil {
		return ErrConversationNotFound
	}
	if err := s.messages.DeleteByConversationID(conversationID); err != nil {
		return err
	}
	if err := s.conversations.DeleteByIDAndUserID(conversationID, userID); err != nil {
		return err
	}
	if s.historyCache != nil {
		_ = s.historyCache.DeleteHistory(ctx, conversationID)
	}
	return nil
}

type SendMessageInput struct {
	UserID         uint
	ConversationID uint
	Content        string
}

// SendMessageResult distinguishes the retrieval outcomes: Sources empty
// with RAGDegraded false means the corpus had nothing relevant; Sources
// empty with RAGDegraded true means retrieval itself failed and the
// answer was produced without internal context.
type SendMessageResult struct {
	Messages    []model.Message `json:"messages"`
	Sources     []Source        `json:"sources"`
	RAGDegraded bool            `json:"rag_degraded"`
}

// exchangePrep is the state both the blocking and the streaming send
// paths share before the completion call.
type exchangePrep struct {
	conversation *model.Conversation
	priorCount   int64
	content      string
	promptMsgs   []ai.ChatMessage
	sources      []Source
	degraded     bool
}

func (s *ChatService) prepareExchange(ctx context.Context, input SendMessageInput) (*exchangePrep, error) {
	if input.UserID == 0 || input.ConversationID == 0 {
		return nil, ErrInvalidInput
	}

	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, ErrMessageEmpty
	}

	conversation, err := s.conversations.GetByIDAndUserID(input.ConversationID, input.UserID)
	if err != nil {
		return nil, err
	}
	if conversation == nil {
		return nil, ErrConversationNotFound
	}

	priorCount, err := s.messages.CountByConversationID(input.ConversationID)
	if err != nil {
		return nil, err
	}

	retrieval, retrievalErr := s.retriever.AnswerWithContext(ctx, content)
	degraded := retrievalErr != nil
	if degraded {
		// Answering without internal context beats answering nothing, but
		// the caller is told the reply ran without RAG.
		s.logger.Warn("retrieval unavailable, answering without context",
			zap.Uint("conversation_id", input.ConversationID),
			zap.Error(retrievalErr),
		)
	}

	userPrompt := content
	sources := []Source{}
	if retrieval != nil && retrieval.Context != "" {
		userPrompt = BuildPrompt(content, retrieval.Contexts)
		sources = retrieval.Sources
	}

	history, err := s.loadHistory(ctx, input.ConversationID)
	if err != nil {
		return nil, err
	}

	promptMsgs := make([]ai.ChatMessage, 0, len(history)+2)
	promptMsgs = append(promptMsgs, ai.ChatMessage{Role: "system", Content: SystemPrompt()})
	for _, m := range history {
		promptMsgs = append(promptMsgs, ai.ChatMessage{Role: m.Role, Content: m.Content})
	}
	promptMsgs = append(promptMsgs, ai.ChatMessage{Role: "user", Content: userPrompt})

	return &exchangePrep{
		conversation: conversation,
		priorCount:   priorCount,
		content:      content,
		promptMsgs:   promptMsgs,
		sources:      sources,
		degraded:     degraded,
	}, nil
}

func (s *ChatService) enqueueUserMessage(ctx context.Context, input SendMessageInput, content string) (model.Message, error) {
	userMessage := model.Message{
		ConversationID: input.ConversationID,
		UserID:         input.UserID,
		Role:           "user",
		Content:        content,
		CreatedAt:      time.Now(),
	}
	if s.publisher == nil {
		return userMessage, ErrMessageEnqueue
	}
	if s.historyCache != nil {
		_ = s.historyCache.MarkDirty(ctx, input.ConversationID)
		_ = s.historyCache.DeleteHistory(ctx, input.ConversationID)
	}
	if err := s.publisher.Publish(ctx, userMessage); err != nil {
		return userMessage, ErrMessageEnqueue
	}
	return userMessage, nil
}

func (s *ChatService) finishExchange(ctx context.Context, input SendMessageInput, prep *exchangePrep, userMessage model.Message, assistantContent string) (*SendMessageResult, error) {
	assistantContent = strings.TrimSpace(assistantContent)
	if assistantContent == "" {
		assistantContent = "The model returned an empty response."
	}

	assistantMessage := model.Message{
		ConversationID: input.ConversationID,
		UserID:         input.UserID,
		Role:           "assistant",
		Content:        assistantContent,
		CreatedAt:      time.Now(),
	}
	if err := s.publisher.Publish(ctx, assistantMessage); err != nil {
		return nil, ErrMessageEnqueue
	}

	if prep.priorCount == 0 {
		s.generateTitleAsync(prep.conversation.ID, prep.content)
	}

	return &SendMessageResult{
		Messages:    []model.Message{userMessage, assistantMessage},
		Sources:     prep.sources,
		RAGDegraded: prep.degraded,
	}, nil
}

func (s *ChatService) SendMessage(ctx context.Context, input SendMessageInput) (*SendMessageResult, error) {
	prep, err := s.prepareExchange(ctx, input)
	if err != nil {
		return nil, err
	}

	userMessage, err := s.enqueueUserMessage(ctx, input, prep.content)
	if err != nil {
		return nil, err
	}

	assistantContent, err := s.completer.Complete(ctx, s.chatCfg, prep.promptMsgs)
	if err != nil {
		return nil, err
	}

	return s.finishExchange(ctx, input, prep, userMessage, assistantContent)
}

// StreamMessage runs the same exchange as SendMessage but forwards the
// assistant's reply chunk by chunk through onChunk while it arrives. The
// returned result carries the accumulated reply plus the retrieval
// sources for a final summary frame.
func (s *ChatService) StreamMessage(
	ctx context.Context,
	input SendMessageInput,
	onChunk func(chunk string) error,
) (*SendMessageResult, error) {
	prep, err := s.prepareExchange(ctx, input)
	if err != nil {
		return nil, err
	}

	userMessage, err := s.enqueueUserMessage(ctx, input, prep.content)
	if err != nil {
		return nil, err
	}

	assistantContent, err := s.completer.StreamComplete(ctx, s.chatCfg, prep.promptMsgs, onChunk)
	if err != nil {
		return nil, err
	}

	return s.finishExchange(ctx, input, prep, userMessage, assistantContent)
}

func (s *ChatService) GetHistory(ctx context.Context, userID, conversationID uint, limit int) ([]model.Message, error) {
	if userID == 0 || conversationID == 0 {
		return nil, ErrInvalidInput
	}
	conversation, err := s.conversations.GetByIDAndUserID(conversationID, userID)
	if err != nil {
		return nil, err
	}
	if conversation == nil {
		return nil, ErrConversationNotFound
	}
	return s.messages.ListByConversationID(conversationID, limit)
}

// loadHistory serves the prompt window from the cache when it is clean,
// falling back to the database and repopulating the cache otherwise.
func (s *ChatService) loadHistory(ctx context.Context, conversationID uint) ([]model.Message, error) {
	if s.historyCache != nil {
		dirty, err := s.historyCache.IsDirty(ctx, conversationID)
		if err == nil && !dirty {
			cached, ok, err := s.historyCache.GetHistory(ctx, conversationID)
			if err == nil && ok {
				return trimHistory(cached, s.maxContext), nil
			}
		}
	}

	messages, err := s.messages.ListByConversationID(conversationID, 200)
	if err != nil {
		return nil, err
	}
	if s.historyCache != nil {
		_ = s.historyCache.SetHistory(ctx, conversationID, messages)
	}
	return trimHistory(messages, s.maxContext), nil
}

func trimHistory(messages []model.Message, max int) []model.Message {
	if max <= 0 || len(messages) <= max {
		return messages
	}
	return messages[len(messages)-max:]
}

// generateTitleAsync names the conversation after its first message.
// Deliberately fire-and-forget: the task is detached from the request
// context, its failure is logged and never reaches the caller.
func (s *ChatService) generateTitleAsync(conversationID uint, firstMessage string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		title, err := s.completer.Complete(ctx, s.chatCfg, []ai.ChatMessage{
			{Role: "user", Content: buildTitlePrompt(firstMessage)},
		})
		if err != nil {
			s.logger.Warn("title generation failed",
				zap.Uint("conversation_id", conversationID),
				zap.Error(err),
			)
			return
		}
		title = strings.TrimSpace(strings.Trim(strings.TrimSpace(title), `"`))
		if title == "" {
			return
		}
		if len(title) > 120 {
			title = title[:120]
		}
		if err := s.conversations.UpdateTitle(conversationID, title); err != nil {
			s.logger.Warn("store generated title failed",
				zap.Uint("conversation_id", conversationID),
				zap.Error(err),
			)
		}
	}()
}
