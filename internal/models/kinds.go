package models

import (
	"unicode/utf8"

	"github.com/maruel/roomdb/internal/csvdb"
	apierrors "github.com/maruel/roomdb/internal/errors"
)

// User fields and values.
const (
	UserID       = "id_usuario"
	UserName     = "nome_usuario"
	UserType     = "tipo_usuario"
	UserEmail    = "email"
	UserPassword = "senha"
	UserActive   = "ativo"

	UserTypeAdmin     = "ADMIN"
	UserTypeProfessor = "PROFESSOR"
	UserTypeStudent   = "STUDENT"

	MinPasswordLength = 12
	// MaxPasswordLength is bcrypt's input limit in bytes.
	MaxPasswordLength = 72
)

// Room fields and values.
const (
	RoomID          = "id_sala"
	RoomName        = "nome_sala"
	RoomType        = "tipo_sala"
	RoomCapacity    = "capacidade"
	RoomBlock       = "bloco"
	RoomObservation = "observacao"

	RoomTypeLab        = "LABORATORIO"
	RoomTypeClassroom  = "SALA_DE_AULA"
	RoomTypeAuditorium = "AUDITORIO"

	minCapacity = 1
	maxCapacity = 500
)

// Resource fields and values.
const (
	ResourceID              = "id_recurso"
	ResourceName            = "nome_recurso"
	ResourceType            = "tipo_recurso"
	ResourcePatrimony       = "patrimonio"
	ResourceDefaultLocation = "local_padrao"
	ResourceObservation     = "observacao"

	ResourceTypeProjector  = "PROJETOR"
	ResourceTypeMicrophone = "MICROFONE"
	ResourceTypeSpeaker    = "ALTO_FALANTE"
	ResourceTypeWhiteboard = "QUADRO_BRANCO"
	ResourceTypeComputer   = "COMPUTADOR"
)

// Reservation fields shared by both reservation kinds, and their statuses.
const (
	RoomReservationID     = "id_reserva"
	ResourceReservationID = "id_reserva_recurso"

	ReservationUserID      = "id_usuario"
	ReservationDate        = "data_reserva"
	ReservationStart       = "hora_inicio"
	ReservationEnd         = "hora_fim"
	ReservationStatus      = "status"
	ReservationObservation = "observacao"

	StatusActive    = "ATIVA"
	StatusCancelled = "CANCELADA"
)

// Users describes user accounts. emailDomain constrains the email field.
func Users(emailDomain string) *Entity {
	if emailDomain == "" {
		emailDomain = DefaultEmailDomain
	}
	return &Entity{
		Kind:    KindUsers,
		File:    "usuarios.csv",
		IDField: UserID,
		Fields:  []string{UserID, UserName, UserType, UserEmail, UserPassword, UserActive},
		validate: func(r csvdb.Record) error {
			return checkAll(
				func() error { return length(r, UserName, minNameLength, maxNameLength) },
				func() error { return oneOf(r, UserType, UserTypeAdmin, UserTypeProfessor, UserTypeStudent) },
				func() error {
					v, err := required(r, UserEmail)
					if err != nil {
						return err
					}
					return CheckEmail(v, emailDomain)
				},
				func() error { return CheckPassword(r.Get(UserPassword), r.Has(UserPassword)) },
				func() error { return oneOf(r, UserActive, "true", "false") },
			)
		},
	}
}

// CheckPassword validates a clear-text password. present is false when the
// field is missing altogether.
func CheckPassword(password string, present bool) error {
	if !present {
		return apierrors.MissingField(UserPassword)
	}
	if n := len(password); n < MinPasswordLength || n > MaxPasswordLength {
		return apierrors.Validation(UserPassword, "must have between 12 and 72 bytes")
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return apierrors.Validation(UserPassword, "must have at least 12 characters")
	}
	return nil
}

// Rooms describes bookable rooms.
func Rooms() *Entity {
	return &Entity{
		Kind:    KindRooms,
		File:    "salas.csv",
		IDField: RoomID,
		Fields:  []string{RoomID, RoomName, RoomType, RoomCapacity, RoomBlock, RoomObservation},
		validate: func(r csvdb.Record) error {
			return checkAll(
				func() error { return length(r, RoomName, minNameLength, maxNameLength) },
				func() error { return oneOf(r, RoomType, RoomTypeLab, RoomTypeClassroom, RoomTypeAuditorium) },
				func() error { return intRange(r, RoomCapacity, minCapacity, maxCapacity) },
				func() error { return nonEmpty(r, RoomBlock) },
				func() error { return observation(r, RoomObservation) },
			)
		},
	}
}

// Resources describes bookable equipment.
func Resources() *Entity {
	return &Entity{
		Kind:    KindResources,
		File:    "recursos.csv",
		IDField: ResourceID,
		Fields:  []string{ResourceID, ResourceName, ResourceType, ResourcePatrimony, ResourceDefaultLocation, ResourceObservation},
		validate: func(r csvdb.Record) error {
			return checkAll(
				func() error { return length(r, ResourceName, minNameLength, maxNameLength) },
				func() error {
					return oneOf(r, ResourceType, ResourceTypeProjector, ResourceTypeMicrophone,
						ResourceTypeSpeaker, ResourceTypeWhiteboard, ResourceTypeComputer)
				},
				func() error { return numeric(r, ResourcePatrimony) },
				func() error { return nonEmpty(r, ResourceDefaultLocation) },
				func() error { return observation(r, ResourceObservation) },
			)
		},
	}
}

// RoomReservations describes bookings of a room.
func RoomReservations() *Entity {
	return reservation(KindRoomReservations, "reservas_salas.csv", RoomReservationID, RoomID)
}

// ResourceReservations describes bookings of a resource.
func ResourceReservations() *Entity {
	return reservation(KindResourceReservations, "reservas_recursos.csv", ResourceReservationID, ResourceID)
}

func reservation(kind Kind, file, idField, targetField string) *Entity {
	return &Entity{
		Kind:    kind,
		File:    file,
		IDField: idField,
		Fields: []string{
			idField, targetField, ReservationUserID, ReservationDate,
			ReservationStart, ReservationEnd, ReservationStatus, ReservationObservation,
		},
		validate: func(r csvdb.Record) error {
			return checkAll(
				func() error { return numeric(r, targetField) },
				func() error { return numeric(r, ReservationUserID) },
				func() error { return date(r, ReservationDate) },
				func() error {
					start, err := clock(r, ReservationStart)
					if err != nil {
						return err
					}
					end, err := clock(r, ReservationEnd)
					if err != nil {
						return err
					}
					if !end.After(start) {
						return apierrors.Validation(ReservationEnd, "must be after "+ReservationStart)
					}
					return nil
				},
				func() error { return oneOf(r, ReservationStatus, StatusActive, StatusCancelled) },
				func() error { return observation(r, ReservationObservation) },
			)
		},
	}
}
