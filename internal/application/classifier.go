package application

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/essencia-app/essencia-cli/internal/adapters/api"
	"github.com/essencia-app/essencia-cli/internal/domain"
)

// Classify maps any failure coming out of the gateway into the normalized
// AppError shown to the user. The priority order is fixed: connectivity
// first, then timeout, then status code, then payload content within that
// status. Messages flagged DebugOnly are blanked unless debug is on.
func Classify(err error, debug bool) domain.AppError {
	if err == nil {
		return domain.AppError{
			Title:    "Erro",
			Message:  "Erro desconhecido.",
			Severity: domain.SeverityError,
		}
	}

	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return classifyAPIError(apiErr)
	}

	if errors.Is(err, domain.ErrSessionExpired) {
		return domain.AppError{
			Title:    "Sessão expirada",
			Message:  "Faça login novamente.",
			Severity: domain.SeverityWarning,
		}
	}

	appErr := domain.AppError{
		Title:     "Erro",
		Message:   err.Error(),
		Severity:  domain.SeverityError,
		DebugOnly: true,
	}
	if !debug {
		appErr.Message = ""
	}
	return appErr
}

func classifyAPIError(apiErr *api.Error) domain.AppError {
	switch {
	case apiErr.Offline:
		return domain.AppError{
			Title:    "Sem conexão",
			Message:  "Verifique sua internet e tente novamente.",
			Severity: domain.SeverityWarning,
		}
	case apiErr.Timeout:
		return domain.AppError{
			Title:    "Tempo esgotado",
			Message:  "A requisição demorou demais. Tente novamente.",
			Severity: domain.SeverityWarning,
		}
	}

	switch apiErr.StatusCode {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		message := apiErr.FirstMessage()
		if message == "" {
			message = "Verifique os dados informados."
		}
		return domain.AppError{Title: "Dados inválidos", Message: message, Severity: domain.SeverityError}

	case http.StatusUnauthorized:
		return domain.AppError{
			Title:    "Sessão expirada",
			Message:  "Faça login novamente.",
			Severity: domain.SeverityWarning,
		}

	case http.StatusForbidden:
		if isEmailVerificationHint(apiErr.Detail) {
			return domain.AppError{
				Title:    "Email não verificado",
				Message:  "Confirme seu email antes de continuar.",
				Severity: domain.SeverityWarning,
			}
		}
		return domain.AppError{
			Title:    "Acesso negado",
			Message:  "Você não tem permissão para esta ação.",
			Severity: domain.SeverityError,
		}

	case http.StatusNotFound:
		return domain.AppError{
			Title:    "Não encontrado",
			Message:  "O recurso solicitado não existe.",
			Severity: domain.SeverityWarning,
		}

	case http.StatusConflict:
		message := apiErr.Detail
		if message == "" {
			if m, ok := apiErr.Raw["message"].(string); ok {
				message = m
			}
		}
		if message == "" {
			message = "Os dados foram alterados por outra sessão."
		}
		return domain.AppError{Title: "Conflito", Message: message, Severity: domain.SeverityError}

	case http.StatusTooManyRequests:
		return domain.AppError{
			Title:    "Muitas requisições",
			Message:  "Aguarde um momento e tente novamente.",
			Severity: domain.SeverityWarning,
		}

	case http.StatusInternalServerError:
		// Never leak backend internals to the user.
		return domain.AppError{
			Title:    "Erro no servidor",
			Message:  "Algo deu errado. Tente novamente mais tarde.",
			Severity: domain.SeverityError,
		}

	case http.StatusServiceUnavailable:
		return domain.AppError{
			Title:    "Serviço indisponível",
			Message:  "O serviço está temporariamente fora do ar.",
			Severity: domain.SeverityWarning,
		}

	case 0:
		return domain.AppError{
			Title:    "Erro de rede",
			Message:  "Não foi possível comunicar com o servidor.",
			Severity: domain.SeverityError,
		}
	}

	return domain.AppError{
		Title:    "Erro",
		Message:  fmt.Sprintf("O servidor respondeu com status %d.", apiErr.StatusCode),
		Severity: domain.SeverityError,
	}
}

func isEmailVerificationHint(detail string) bool {
	lowered := strings.ToLower(detail)
	if !strings.Contains(lowered, "email") {
		return false
	}
	return strings.Contains(lowered, "verif") || strings.Contains(lowered, "confirm")
}
