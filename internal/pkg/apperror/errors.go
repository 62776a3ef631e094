package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized  ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden     ErrorCode = "FORBIDDEN"
	ErrCodeBadRequest    ErrorCode = "BAD_REQUEST"
	ErrCodeConflict      ErrorCode = "CONFLICT"
	ErrCodeInternal      ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation    ErrorCode = "VALIDATION_ERROR"
	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"
)

type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeBadRequest, ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func IsNotFound(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeNotFound
}

func IsForbidden(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeForbidden
}

func IsConflict(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeConflict
}

// AsAppError возвращает *AppError, если err принадлежит таксономии.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	ok := errors.As(err, &appErr)
	return appErr, ok
}

// Существование ресурсов.
var (
	ErrUserNotFound        = New(ErrCodeNotFound, "пользователь не найден")
	ErrSellerNotFound      = New(ErrCodeNotFound, "продавец не найден")
	ErrProductNotFound     = New(ErrCodeNotFound, "товар не найден")
	ErrPublicationNotFound = New(ErrCodeNotFound, "публикация не найдена")
	ErrOrderNotFound       = New(ErrCodeNotFound, "заказ не найден")
	ErrDisputeNotFound     = New(ErrCodeNotFound, "диспут не найден")
)

// Идентичность и авторизация.
var (
	ErrUnauthorized        = New(ErrCodeUnauthorized, "требуется авторизация")
	ErrInvalidCredentials  = New(ErrCodeUnauthorized, "неверные учетные данные")
	ErrNotBuyerRole        = New(ErrCodeForbidden, "пользователь не является покупателем")
	ErrNotSellerRole       = New(ErrCodeForbidden, "пользователь не является продавцом")
	ErrSellerSelfPurchase  = New(ErrCodeForbidden, "продавец не может купить собственный товар")
	ErrNotParticipant      = New(ErrCodeForbidden, "пользователь не участвует в заказе")
	ErrNotPublicationOwner = New(ErrCodeForbidden, "публикация принадлежит другому продавцу")

	ErrOnlySellerMayDispatch     = New(ErrCodeForbidden, "отметить отправку может только продавец")
	ErrOnlyBuyerMayReceive       = New(ErrCodeForbidden, "подтвердить получение может только покупатель")
	ErrOnlySellerMayClaim        = New(ErrCodeForbidden, "истребовать средства может только продавец")
	ErrOnlyBuyerMayOpenDispute   = New(ErrCodeForbidden, "открыть диспут может только покупатель")
	ErrOnlySellerMayCounterArgue = New(ErrCodeForbidden, "контраргументировать может только продавец")
	ErrOnlyStaffMayResolve       = New(ErrCodeForbidden, "разрешить диспут может только персонал")
)

// Нарушения state-guard'ов жизненного цикла заказа.
var (
	ErrOrderNotPending        = New(ErrCodeConflict, "заказ не в состоянии ожидания отправки")
	ErrOrderAlreadyDispatched = New(ErrCodeConflict, "заказ уже отправлен")
	ErrOrderNotDispatched     = New(ErrCodeConflict, "заказ ещё не отправлен")
	ErrOrderAlreadyReceived   = New(ErrCodeConflict, "заказ уже получен")
	ErrOrderNotReceived       = New(ErrCodeConflict, "заказ ещё не получен")
	ErrOrderCancelled         = New(ErrCodeConflict, "заказ отменён")
)

// Нарушения политик, завязанных на время, и протокола согласия.
var (
	ErrFundsAlreadySettled        = New(ErrCodeConflict, "средства по заказу уже переведены")
	ErrClaimPolicyNotMet          = New(ErrCodeConflict, "политика истребования средств не выполнена")
	ErrAwaitingMutualConfirmation = New(ErrCodeConflict, "отмена уже запрошена, ожидается подтверждение второй стороны")
)

// Диспуты.
var (
	ErrDisputeInProgress        = New(ErrCodeConflict, "по заказу идёт диспут, операция заморожена")
	ErrDisputePendingResolution = New(ErrCodeConflict, "диспут ожидает решения арбитра")
	ErrDisputeResolved          = New(ErrCodeConflict, "диспут уже разрешён")
	ErrDisputeWindowExpired     = New(ErrCodeConflict, "средства уже переведены, диспут невозможен")
)

// Арифметика и валидация значений.
var (
	ErrQuantityZero                 = New(ErrCodeValidation, "количество должно быть больше нуля")
	ErrPriceZero                    = New(ErrCodeValidation, "цена должна быть больше нуля")
	ErrInsufficientStock            = New(ErrCodeConflict, "недостаточно товара в публикации")
	ErrInsufficientSellerStock      = New(ErrCodeConflict, "недостаточно товара на складе продавца")
	ErrInsufficientTransferredValue = New(ErrCodeBadRequest, "переведённой суммы недостаточно для оплаты")
	ErrValueComputation             = New(ErrCodeBadRequest, "не удалось вычислить стоимость заказа")
	ErrNoOfferChange                = New(ErrCodeBadRequest, "новое количество совпадает с текущим")
	ErrInvalidRating                = New(ErrCodeValidation, "оценка должна быть от 1 до 5")
	ErrAlreadyRated                 = New(ErrCodeConflict, "вы уже оценили этот заказ")
	ErrInvalidVerdict               = New(ErrCodeValidation, "недопустимый вердикт")
)
