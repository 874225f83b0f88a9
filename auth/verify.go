package auth

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/smtp"
	"os"
	"time"

	"eventura/models"
	"eventura/session"
	"eventura/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
)

const verificationCodeTTL = 15 * time.Minute

// Mailer delivers verification codes. SMTPMailer is the production
// implementation; tests substitute their own.
type Mailer interface {
	SendVerificationCode(toEmail, code string) error
}

type SMTPMailer struct {
	Host string
	Port string
	From string
	Pass string
}

func NewSMTPMailerFromEnv() *SMTPMailer {
	return &SMTPMailer{
		Host: os.Getenv("SMTP_HOST"),
		Port: os.Getenv("SMTP_PORT"),
		From: os.Getenv("SMTP_FROM"),
		Pass: os.Getenv("SMTP_PASS"),
	}
}

func (m *SMTPMailer) SendVerificationCode(toEmail, code string) error {
	if m.Host == "" {
		// Dev mode without SMTP configured
		log.Printf("verification code for %s: %s", toEmail, code)
		return nil
	}
	msg := []byte("Subject: Email Verification\n\nYour verification code is: " + code)
	auth := smtp.PlainAuth("", m.From, m.Pass, m.Host)
	return smtp.SendMail(m.Host+":"+m.Port, auth, m.From, []string{toEmail}, msg)
}

func (h *Handler) sendVerificationCode(ctx context.Context, email string) error {
	code := utils.GenerateRandomDigitString(6)
	if err := h.Redis.Set(ctx, "verify:"+email, code, verificationCodeTTL); err != nil {
		return err
	}
	return h.Mailer.SendVerificationCode(email, code)
}

// POST /api/auth/request-verification
func (h *Handler) RequestVerification(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var input struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.Email == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Email is required")
		return
	}

	if err := h.sendVerificationCode(r.Context(), input.Email); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to send verification code")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true})
}

// POST /api/auth/verify-email
//
// A successful verification re-issues the access token so the verified flag
// lands in the claims immediately.
func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var input struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.Email == "" || input.Code == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Email and code are required")
		return
	}

	ctx := r.Context()

	stored, err := h.Redis.Get(ctx, "verify:"+input.Email)
	if err != nil || stored != input.Code {
		utils.RespondWithError(w, http.StatusUnauthorized, "Invalid or expired code")
		return
	}

	var user models.UserProfile
	err = h.DB.Users.FindOneAndUpdate(ctx,
		bson.M{"email": input.Email},
		bson.M{"$set": bson.M{"email_verified": true, "updated_at": time.Now()}},
	).Decode(&user)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to verify user")
		return
	}
	user.EmailVerified = true

	if err := h.Redis.Del(ctx, "verify:"+input.Email); err != nil {
		log.Printf("VerifyEmail: code cleanup failed: %v", err)
	}

	tokenString, err := generateAccessToken(user)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	h.Sessions.Publish(user.UserID, &session.Identity{
		UserID:        user.UserID,
		Email:         user.Email,
		EmailVerified: true,
	})

	utils.SendResponse(w, http.StatusOK, map[string]string{"token": tokenString}, "Email verified", nil)
}
