package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func MapRoutes(r *chi.Mux, chatHandler *ChatHandler, fileHandler *FileHandler, authHandler *AuthHandler, authMiddleware *AuthMiddleware) {
	// Auth routes (public)
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", http.HandlerFunc(authHandler.Register))
		r.Post("/login", http.HandlerFunc(authHandler.Login))
		r.Post("/refresh", http.HandlerFunc(authHandler.RefreshToken))
		r.Post("/logout", http.HandlerFunc(authHandler.Logout))

		// Protected auth routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)
			r.Post("/logout-all", http.HandlerFunc(authHandler.LogoutAllDevices))
		})
	})

	// Chat routes
	r.Route("/chats", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)

		r.Get("/", http.HandlerFunc(chatHandler.ListChats))
		r.Get("/{mentorId}", http.HandlerFunc(chatHandler.GetOrCreateChat))

		r.Route("/{chatId}/messages", func(r chi.Router) {
			r.Get("/", http.HandlerFunc(chatHandler.GetMessages))
			r.Post("/", http.HandlerFunc(chatHandler.SendMessage))
			r.Put("/{messageId}", http.HandlerFunc(chatHandler.EditMessage))
			r.Delete("/{messageId}", http.HandlerFunc(chatHandler.DeleteMessage))
			r.Post("/{messageId}/reactions", http.HandlerFunc(chatHandler.ToggleReaction))
			r.Put("/{messageId}/read", http.HandlerFunc(chatHandler.MarkRead))
		})
	})

	// File routes
	r.Route("/files", func(r chi.Router) {
		// Serving by filename decides per category whether a principal is
		// needed, so the token is optional here.
		r.With(authMiddleware.MaybeAuthenticate).Get("/{filename}", http.HandlerFunc(fileHandler.Serve))

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)
			r.Get("/user/{userId}", http.HandlerFunc(fileHandler.ListByUser))
			r.Get("/{id}/download", http.HandlerFunc(fileHandler.Download))
			r.Delete("/{id}", http.HandlerFunc(fileHandler.Delete))
		})
	})
}
