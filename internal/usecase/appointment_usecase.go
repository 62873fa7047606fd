package usecase

import (
	"context"
	"errors"

	"whatsapp-booking-bot/internal/converter"
	"whatsapp-booking-bot/internal/delivery/dto"
	"whatsapp-booking-bot/internal/domain/entity"
	"whatsapp-booking-bot/internal/domain/repository"
	"whatsapp-booking-bot/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrPatientNotFound = errors.New("patient not found")
	ErrInvalidStatus   = errors.New("invalid appointment status")
)

// AppointmentUsecase is the read side used by the admin API
type AppointmentUsecase interface {
	GetDoctorAppointments(ctx context.Context, doctorID uuid.UUID, status string) (*dto.AppointmentListResponse, error)
	GetPatientAppointments(ctx context.Context, phone string) (*dto.PatientAppointmentsResponse, error)
	PreviewSlots(ctx context.Context) *dto.SlotListResponse
}

type appointmentUsecase struct {
	db              *gorm.DB
	log             *logrus.Logger
	doctorRepo      repository.DoctorRepository
	patientRepo     repository.PatientRepository
	appointmentRepo repository.AppointmentRepository
	catalog         *service.SlotCatalog
}

func NewAppointmentUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	doctorRepo repository.DoctorRepository,
	patientRepo repository.PatientRepository,
	appointmentRepo repository.AppointmentRepository,
	catalog *service.SlotCatalog,
) AppointmentUsecase {
	return &appointmentUsecase{
		db:              db,
		log:             log,
		doctorRepo:      doctorRepo,
		patientRepo:     patientRepo,
		appointmentRepo: appointmentRepo,
		catalog:         catalog,
	}
}

func (u *appointmentUsecase) GetDoctorAppointments(ctx context.Context, doctorID uuid.UUID, status string) (*dto.AppointmentListResponse, error) {
	filter := entity.AppointmentStatus(status)
	switch filter {
	case "", entity.AppointmentStatusScheduled, entity.AppointmentStatusCancelled:
	default:
		return nil, ErrInvalidStatus
	}

	doctor, err := u.doctorRepo.FindByID(ctx, u.db, doctorID)
	if err != nil {
		u.log.Warnf("Failed to find doctor %s: %+v", doctorID, err)
		return nil, err
	}
	if doctor == nil {
		return nil, ErrDoctorNotFound
	}

	appointments, err := u.appointmentRepo.FindByDoctor(ctx, u.db, doctorID, filter)
	if err != nil {
		u.log.Warnf("Failed to find appointments for doctor %s: %+v", doctorID, err)
		return nil, err
	}

	return &dto.AppointmentListResponse{
		Appointments: converter.AppointmentsToResponses(appointments),
		Total:        len(appointments),
	}, nil
}

func (u *appointmentUsecase) GetPatientAppointments(ctx context.Context, phone string) (*dto.PatientAppointmentsResponse, error) {
	phone = service.NormalizeAddress(phone)
	patient, err := u.patientRepo.FindByPhone(ctx, u.db, phone)
	if err != nil {
		u.log.Warnf("Failed to find patient %s: %+v", phone, err)
		return nil, err
	}
	if patient == nil {
		return nil, ErrPatientNotFound
	}

	appointments, err := u.appointmentRepo.FindByPatient(ctx, u.db, patient.ID)
	if err != nil {
		u.log.Warnf("Failed to find appointments for patient %s: %+v", patient.ID, err)
		return nil, err
	}

	var latest *entity.Appointment
	if len(appointments) > 0 {
		latest = &appointments[0]
	}

	return &dto.PatientAppointmentsResponse{
		PatientID:    patient.ID,
		PhoneNumber:  patient.PhoneNumber,
		Name:         patient.DisplayName(),
		Stage:        string(entity.ResolveBookingStage(patient, latest)),
		Appointments: converter.AppointmentsToResponses(appointments),
		Total:        len(appointments),
	}, nil
}

func (u *appointmentUsecase) PreviewSlots(ctx context.Context) *dto.SlotListResponse {
	slots := u.catalog.Current()
	return &dto.SlotListResponse{
		Slots: converter.SlotsToResponses(slots),
		Total: len(slots),
	}
}
