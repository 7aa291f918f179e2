package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"careercompass/internal/entity"
	"careercompass/internal/upload"
	"careercompass/internal/usecase"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type ChatHandler struct {
	chatUc  usecase.ChatUsecase
	gateway *upload.Gateway
	log     *zap.Logger
}

func NewChatHandler(chatUc usecase.ChatUsecase, gateway *upload.Gateway, log *zap.Logger) *ChatHandler {
	return &ChatHandler{
		chatUc:  chatUc,
		gateway: gateway,
		log:     log,
	}
}

// Method Get /chats
func (h *ChatHandler) ListChats(w http.ResponseWriter, r *http.Request) {
	principal := PrincipalFrom(r.Context())

	chats, err := h.chatUc.ListChats(r.Context(), principal.UserId)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	writeData(w, http.StatusOK, "success", chats)
}

// Method Get /chats/{mentorId}
func (h *ChatHandler) GetOrCreateChat(w http.ResponseWriter, r *http.Request) {
	principal := PrincipalFrom(r.Context())
	mentorId := chi.URLParam(r, "mentorId")

	chat, err := h.chatUc.GetOrCreateChat(r.Context(), principal.UserId, mentorId)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	writeData(w, http.StatusOK, "success", chat)
}

type messagePage struct {
	Messages []entity.Message `json:"messages"`
	Total    int64            `json:"total"`
	Page     int              `json:"page"`
	Limit    int              `json:"limit"`
}

// Method Get /chats/{chatId}/messages?page=&limit=
func (h *ChatHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	principal := PrincipalFrom(r.Context())
	chatId := chi.URLParam(r, "chatId")

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = usecase.DefaultPageSize
	}

	messages, total, err := h.chatUc.ListMessages(r.Context(), chatId, principal.UserId, page, limit)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	writeData(w, http.StatusOK, "success", messagePage{
		Messages: messages,
		Total:    total,
		Page:     page,
		Limit:    limit,
	})
}

// Method Post /chats/{chatId}/messages
// Accepts multipart (content field plus optional attachment file) or a
// plain JSON body for text-only messages.
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	principal := PrincipalFrom(r.Context())
	chatId := chi.URLParam(r, "chatId")

	var content string
	var attachment *entity.Attachment
	var stored []entity.FileDescriptor

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		files, err := h.gateway.Handle(r.Context(), r, "attachment", upload.Constraints{
			Category:   entity.CategoryChat,
			UploaderId: principal.UserId,
		})
		if err != nil {
			writeError(w, h.log, err)
			return
		}
		stored = files
		content = r.FormValue("content")
		if len(files) > 0 {
			d := files[0]
			attachment = &entity.Attachment{
				Filename:     d.Filename,
				OriginalName: d.OriginalName,
				Url:          d.Url,
				Size:         d.Size,
				Mimetype:     d.Mimetype,
			}
		}
	} else {
		var req struct {
			Content string `json:"content"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, Response{Success: false, Message: "invalid request body"})
			return
		}
		content = req.Content
	}

	message, err := h.chatUc.SendMessage(r.Context(), chatId, principal.UserId, content, attachment)
	if err != nil {
		// The blob was stored before the message failed; remove it rather
		// than leaving an orphan.
		if len(stored) > 0 {
			h.gateway.Discard(r.Context(), stored)
		}
		writeError(w, h.log, err)
		return
	}

	writeData(w, http.StatusCreated, "message sent", message)
}

// Method Put /chats/{chatId}/messages/{messageId}
func (h *ChatHandler) EditMessage(w http.ResponseWriter, r *http.Request) {
	principal := PrincipalFrom(r.Context())
	chatId := chi.URLParam(r, "chatId")
	messageId := chi.URLParam(r, "messageId")

	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Message: "invalid request body"})
		return
	}

	message, err := h.chatUc.EditMessage(r.Context(), chatId, messageId, principal.UserId, req.Content)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	writeData(w, http.StatusOK, "message edited", message)
}

// Method Delete /chats/{chatId}/messages/{messageId}
func (h *ChatHandler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	principal := PrincipalFrom(r.Context())
	chatId := chi.URLParam(r, "chatId")
	messageId := chi.URLParam(r, "messageId")

	if err := h.chatUc.DeleteMessage(r.Context(), chatId, messageId, principal.UserId); err != nil {
		writeError(w, h.log, err)
		return
	}

	writeData(w, http.StatusOK, "message deleted", nil)
}

// Method Post /chats/{chatId}/messages/{messageId}/reactions
func (h *ChatHandler) ToggleReaction(w http.ResponseWriter, r *http.Request) {
	principal := PrincipalFrom(r.Context())
	chatId := chi.URLParam(r, "chatId")
	messageId := chi.URLParam(r, "messageId")

	var req struct {
		Emoji string `json:"emoji"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Message: "invalid request body"})
		return
	}

	reactions, err := h.chatUc.ToggleReaction(r.Context(), chatId, messageId, principal.UserId, req.Emoji)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	writeData(w, http.StatusOK, "success", reactions)
}

// Method Put /chats/{chatId}/messages/{messageId}/read
func (h *ChatHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	principal := PrincipalFrom(r.Context())
	chatId := chi.URLParam(r, "chatId")
	messageId := chi.URLParam(r, "messageId")

	if err := h.chatUc.MarkRead(r.Context(), chatId, messageId, principal.UserId); err != nil {
		writeError(w, h.log, err)
		return
	}

	writeData(w, http.StatusOK, "message marked as read", nil)
}
