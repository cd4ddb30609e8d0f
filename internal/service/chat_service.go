package service

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"

	"ai-studymate-be/internal/constant"
	"ai-studymate-be/internal/dto"
	"ai-studymate-be/internal/entity"
	"ai-studymate-be/internal/repository/specification"
	"ai-studymate-be/internal/repository/unitofwork"
	"ai-studymate-be/pkg/llm"
	"ai-studymate-be/pkg/rag/command"
	"ai-studymate-be/pkg/rag/domain"
	"ai-studymate-be/pkg/rag/prompt"
	"ai-studymate-be/pkg/rag/retrieval"

	"github.com/google/uuid"
)

const (
	ackRemember       = "Got it. I'll remember that."
	ackMemo           = "Noted for this session."
	ackRole           = "Persona updated for this session."
	ackRoleCleared    = "Persona cleared for this session."
	ackNothingToStore = "There is nothing to store. Add the text after the command prefix."
)

// IChatService is the turn orchestrator: it classifies the input, runs the
// retrieval pipeline when needed, generates the answer, and persists the turn.
type IChatService interface {
	ProcessTurn(ctx context.Context, userId uuid.UUID, request *dto.ProcessTurnRequest) (*dto.ProcessTurnResponse, error)

	// ProcessTurnStream behaves like ProcessTurn but emits answer tokens
	// incrementally via onToken; citations arrive only in the final response.
	ProcessTurnStream(ctx context.Context, userId uuid.UUID, request *dto.ProcessTurnRequest, onToken llm.TokenHandler) (*dto.ProcessTurnResponse, error)

	GetAllSessions(ctx context.Context, userId uuid.UUID) ([]*dto.GetAllSessionsResponse, error)
	GetChatHistory(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) ([]*dto.GetChatHistoryResponse, error)
}

type chatService struct {
	uowFactory       unitofwork.RepositoryFactory
	sessionService   ISessionService
	memoryService    IMemoryService
	publisherService IPublisherService
	llmProvider      llm.LLMProvider
	retriever        *retrieval.HybridRetriever
	registry         *domain.Registry
	config           retrieval.Config
	llmLogger        *log.Logger
}

func NewChatService(
	uowFactory unitofwork.RepositoryFactory,
	sessionService ISessionService,
	memoryService IMemoryService,
	publisherService IPublisherService,
	llmProvider llm.LLMProvider,
	retriever *retrieval.HybridRetriever,
	registry *domain.Registry,
	config retrieval.Config,
	retryConfig llm.RetryConfig,
) IChatService {
	return &chatService{
		uowFactory:       uowFactory,
		sessionService:   sessionService,
		memoryService:    memoryService,
		publisherService: publisherService,
		llmProvider:      llm.WithRetry(llmProvider, retryConfig),
		retriever:        retriever,
		registry:         registry,
		config:           config,
		llmLogger:        initLLMLogger(),
	}
}

func initLLMLogger() *log.Logger {
	logPath := filepath.Join(".", "logs", "llm_rag.log")
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		log.Printf("Failed to create logs directory: %v", err)
	}
	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return log.New(os.Stdout, "[LLM-RAG] ", log.LstdFlags)
	}
	return log.New(file, "", log.LstdFlags)
}

// ProcessTurn executes one chat turn end to end.
func (cs *chatService) ProcessTurn(ctx context.Context, userId uuid.UUID, request *dto.ProcessTurnRequest) (*dto.ProcessTurnResponse, error) {
	return cs.processTurn(ctx, userId, request, nil)
}

func (cs *chatService) ProcessTurnStream(ctx context.Context, userId uuid.UUID, request *dto.ProcessTurnRequest, onToken llm.TokenHandler) (*dto.ProcessTurnResponse, error) {
	return cs.processTurn(ctx, userId, request, onToken)
}

func (cs *chatService) processTurn(ctx context.Context, userId uuid.UUID, request *dto.ProcessTurnRequest, onToken llm.TokenHandler) (*dto.ProcessTurnResponse, error) {
	if strings.TrimSpace(request.Query) == "" {
		return nil, ErrEmptyQuery
	}

	session, history, err := cs.resolveSession(ctx, userId, request)
	if err != nil {
		return nil, err
	}

	cmd := command.Classify(request.Query)

	var (
		reply     string
		citations []retrieval.Citation
		mode      string
	)

	switch cmd.Kind {
	case command.KindRemember:
		reply, err = cs.handleFact(ctx, userId, session, cmd, constant.MemoryScopePermanent)
		mode = constant.TurnModeShortCircuit
	case command.KindMemo:
		reply, err = cs.handleFact(ctx, userId, session, cmd, constant.MemoryScopeSession)
		mode = constant.TurnModeShortCircuit
	case command.KindRole:
		reply, err = cs.handleRole(ctx, session, cmd)
		mode = constant.TurnModeShortCircuit
	case command.KindBackground:
		reply, err = cs.generate(ctx, userId, session, history, cmd.Text, nil, request.UserContext, onToken)
		mode = constant.TurnModeBackground
	default:
		var result *retrieval.Result
		result, err = cs.retrieve(ctx, session, request, cmd.Text)
		if errors.Is(err, retrieval.ErrRetrievalUnavailable) {
			// Both providers down degrades the turn to a no-sources answer;
			// the turn itself never hard-fails on retrieval
			cs.llmLogger.Printf("[WARN] Retrieval unavailable for session %s, answering without sources", session.Id)
			result, err = &retrieval.Result{}, nil
		}
		if err == nil {
			reply, err = cs.generate(ctx, userId, session, history, cmd.Text, result.Chunks, request.UserContext, onToken)
			citations = result.Citations(cs.config.PreviewLength)
		}
		mode = constant.TurnModeRAG
	}
	if err != nil {
		return nil, err
	}

	userMessage, assistantMessage, err := cs.sessionService.AppendTurn(ctx, session, cmd.Raw, reply, citations)
	if err != nil {
		return nil, err
	}

	if nameErr := cs.sessionService.AutoName(ctx, session, cmd.Text); nameErr != nil {
		cs.llmLogger.Printf("[WARN] Session auto-name failed: %v", nameErr)
	}

	cs.publishTurn(ctx, userId, session, userMessage, assistantMessage, mode, len(citations))

	return &dto.ProcessTurnResponse{
		ChatSessionId: session.Id,
		ChatName:      session.Name,
		Response:      reply,
		Mode:          mode,
		Citations:     toCitationDTOs(citations),
	}, nil
}

// resolveSession restores the addressed session or creates a fresh one when
// no id is given. The class always wins over the domain type for scoping.
func (cs *chatService) resolveSession(ctx context.Context, userId uuid.UUID, request *dto.ProcessTurnRequest) (*entity.ChatSession, []llm.Message, error) {
	if request.ChatSessionId != nil {
		session, messages, err := cs.sessionService.Restore(ctx, userId, *request.ChatSessionId)
		if err != nil {
			return nil, nil, err
		}
		return session, toLLMHistory(messages), nil
	}

	domainType := string(cs.registry.Resolve(domain.Type(request.DomainType)).DomainType)
	session, err := cs.sessionService.Create(ctx, userId, "", request.ActiveClassId, request.ClassName, domainType)
	if err != nil {
		return nil, nil, err
	}
	return session, nil, nil
}

func (cs *chatService) handleFact(ctx context.Context, userId uuid.UUID, session *entity.ChatSession, cmd command.Command, scope string) (string, error) {
	if cmd.IsEmpty() {
		return ackNothingToStore, nil
	}
	sessionId := session.Id
	if _, err := cs.memoryService.AddFact(ctx, userId, &sessionId, scope, cmd.Text); err != nil {
		return "", err
	}
	if scope == constant.MemoryScopePermanent {
		return ackRemember, nil
	}
	return ackMemo, nil
}

func (cs *chatService) handleRole(ctx context.Context, session *entity.ChatSession, cmd command.Command) (string, error) {
	if err := cs.sessionService.SetPersona(ctx, session, cmd.Text); err != nil {
		return "", err
	}
	if cmd.IsEmpty() {
		return ackRoleCleared, nil
	}
	return ackRole, nil
}

func (cs *chatService) retrieve(ctx context.Context, session *entity.ChatSession, request *dto.ProcessTurnRequest, query string) (*retrieval.Result, error) {
	k := request.TopK
	if k <= 0 {
		k = cs.config.DefaultK
	}

	collection := session.Collection()
	cs.llmLogger.Printf("[TURN] session=%s collection=%s k=%d files=%d", session.Id, collection, k, len(request.SelectedFiles))

	return cs.retriever.Retrieve(ctx, retrieval.Query{
		Text:          query,
		Collection:    collection,
		SelectedFiles: request.SelectedFiles,
		K:             k,
	})
}

func (cs *chatService) generate(ctx context.Context, userId uuid.UUID, session *entity.ChatSession, history []llm.Message, query string, chunks []retrieval.ScoredChunk, userContext *dto.UserContextDTO, onToken llm.TokenHandler) (string, error) {
	sessionId := session.Id
	facts, err := cs.memoryService.VisibleFacts(ctx, userId, &sessionId)
	if err != nil {
		cs.llmLogger.Printf("[WARN] Failed to load memory facts: %v", err)
		facts = nil
	}

	builder := prompt.NewBuilder(prompt.Input{
		Profile:     cs.registry.Resolve(domain.Type(session.DomainType)),
		UserContext: toUserContext(userContext),
		Persona:     session.Persona,
		Facts:       facts,
		History:     history,
		Chunks:      chunks,
		Query:       query,
	})

	var reply string
	if onToken != nil {
		reply, err = cs.llmProvider.ChatStream(ctx, builder.Messages(), onToken)
	} else {
		reply, err = cs.llmProvider.Chat(ctx, builder.Messages())
	}
	if err != nil {
		cs.llmLogger.Printf("[ERROR] Completion failed for session %s: %v", session.Id, err)
		if errors.Is(err, context.Canceled) {
			return "", err
		}
		return "", ErrCompletionFailed
	}
	return reply, nil
}

func (cs *chatService) publishTurn(ctx context.Context, userId uuid.UUID, session *entity.ChatSession, userMessage, assistantMessage *entity.ChatMessage, mode string, citationCount int) {
	payload, err := json.Marshal(dto.PublishTurnPersistedMessage{
		ChatSessionId:      session.Id,
		UserId:             userId,
		UserMessageId:      userMessage.Id,
		AssistantMessageId: assistantMessage.Id,
		Mode:               mode,
		CitationCount:      citationCount,
	})
	if err != nil {
		return
	}
	// The event is auxiliary: a publish failure never fails the turn
	if err := cs.publisherService.Publish(ctx, payload); err != nil {
		cs.llmLogger.Printf("[WARN] Failed to publish turn event: %v", err)
	}
}

func (cs *chatService) GetAllSessions(ctx context.Context, userId uuid.UUID) ([]*dto.GetAllSessionsResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	sessions, err := uow.ChatSessionRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	response := make([]*dto.GetAllSessionsResponse, 0, len(sessions))
	for _, s := range sessions {
		response = append(response, &dto.GetAllSessionsResponse{
			Id:         s.Id,
			Name:       s.Name,
			ClassId:    s.ClassId,
			ClassName:  s.ClassName,
			DomainType: s.DomainType,
			CreatedAt:  s.CreatedAt,
			UpdatedAt:  s.UpdatedAt,
		})
	}
	return response, nil
}

func (cs *chatService) GetChatHistory(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) ([]*dto.GetChatHistoryResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	session, err := uow.ChatSessionRepository().FindOne(ctx,
		specification.ByID{ID: sessionId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	messages, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: sessionId},
		specification.OrderBy{Field: "seq", Desc: false},
	)
	if err != nil {
		return nil, err
	}

	messageIds := make([]uuid.UUID, len(messages))
	for i, msg := range messages {
		messageIds[i] = msg.Id
	}

	citations, err := uow.ChatCitationRepository().FindByMessageIds(ctx, messageIds)
	if err != nil {
		return nil, err
	}

	citationsByMsgId := make(map[uuid.UUID][]dto.CitationDTO)
	for _, c := range citations {
		citationsByMsgId[c.ChatMessageId] = append(citationsByMsgId[c.ChatMessageId], dto.CitationDTO{
			Source:         c.Source,
			Page:           c.Page,
			Preview:        c.Preview,
			RelevanceScore: c.RelevanceScore,
		})
	}

	response := make([]*dto.GetChatHistoryResponse, 0, len(messages))
	for _, msg := range messages {
		response = append(response, &dto.GetChatHistoryResponse{
			Id:        msg.Id,
			Role:      msg.Role,
			Content:   msg.Content,
			CreatedAt: msg.CreatedAt,
			Citations: citationsByMsgId[msg.Id],
		})
	}
	return response, nil
}

func toUserContext(uc *dto.UserContextDTO) *prompt.UserContext {
	if uc == nil {
		return nil
	}
	return &prompt.UserContext{
		Name:              uc.Name,
		Bio:               uc.Bio,
		ResearchInterests: uc.ResearchInterests,
		Timezone:          uc.Timezone,
		Degree:            uc.Degree,
		Institution:       uc.Institution,
	}
}

func toLLMHistory(messages []*entity.ChatMessage) []llm.Message {
	history := make([]llm.Message, 0, len(messages))
	for _, m := range messages {
		history = append(history, llm.Message{Role: m.Role, Content: m.Content})
	}
	return history
}

func toCitationDTOs(citations []retrieval.Citation) []dto.CitationDTO {
	if len(citations) == 0 {
		return nil
	}
	out := make([]dto.CitationDTO, len(citations))
	for i, c := range citations {
		var page *int
		if c.Page > 0 {
			p := c.Page
			page = &p
		}
		out[i] = dto.CitationDTO{
			Source:         c.Source,
			Page:           page,
			Preview:        c.Preview,
			RelevanceScore: c.RelevanceScore,
		}
	}
	return out
}
