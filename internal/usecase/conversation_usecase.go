package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"whatsapp-booking-bot/config"
	"whatsapp-booking-bot/internal/delivery/dto"
	"whatsapp-booking-bot/internal/domain/entity"
	"whatsapp-booking-bot/internal/domain/gateway"
	"whatsapp-booking-bot/internal/domain/repository"
	"whatsapp-booking-bot/internal/infrastructure/metrics"
	"whatsapp-booking-bot/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"
)

var (
	ErrMissingAddress = service.ErrMissingAddress
	ErrDispatchFailed = errors.New("outbound message dispatch failed")
)

// Status strings reported to the inbound transport
const (
	StatusGreetingSent         = "Greeting template sent"
	StatusBookingListSent      = "List picker sent for scheduling"
	StatusNoRescheduleTarget   = "No appointment found for reschedule"
	StatusRescheduleListSent   = "List picker sent for reschedule"
	StatusNothingToCancel      = "No appointments to cancel"
	StatusCancelListSent       = "List picker sent for cancellation"
	StatusSlotNotFound         = "Slot not found"
	StatusDuplicateSelection   = "Duplicate selection ignored"
	StatusAskedForName         = "Asked for patient name"
	StatusAppointmentScheduled = "Appointment scheduled and template sent"
	StatusNameSaved            = "Patient name saved and confirmation sent"
	StatusAppointmentCancelled = "Appointment cancelled and template sent"
	StatusFallback             = "fallback"
)

// User-facing notices
const (
	msgNoRescheduleTarget = "Sorry, we couldn't find any existing appointments linked to your number."
	msgNothingToCancel    = "No scheduled appointments found to cancel."
	msgSlotNotFound       = "Sorry, could not find the selected slot. Please try again."
	msgAskForName         = "Thanks, your slot %s is reserved. Please reply with your full name to confirm the booking."
	msgFallback           = "Sorry, I didn't understand that. Reply with 'Hi' to start."
)

const (
	listButtonLabel  = "Select Slot"
	listSectionTitle = "Available Slots"
	patientFallback  = "Patient"
)

var tracer = otel.Tracer("whatsapp-booking-bot/usecase")

type ConversationUsecase interface {
	// HandleInbound processes one provider webhook delivery end to end and sends at most one message
	HandleInbound(ctx context.Context, payload map[string]string) (*dto.WebhookResult, error)
}

// ConversationDeps groups the collaborators of the conversation flow
type ConversationDeps struct {
	DB              *gorm.DB
	Log             *logrus.Logger
	Metrics         *metrics.ConversationMetrics
	Normalizer      *service.EventNormalizer
	Catalog         *service.SlotCatalog
	Locker          *service.AddressLocker
	Guard           *service.DeliveryGuard
	Audit           service.AuditService
	Dispatcher      gateway.MessageDispatcher
	DoctorRepo      repository.DoctorRepository
	PatientRepo     repository.PatientRepository
	AppointmentRepo repository.AppointmentRepository
	Templates       config.TemplateConfig
}

type conversationUsecase struct {
	db              *gorm.DB
	log             *logrus.Logger
	metrics         *metrics.ConversationMetrics
	normalizer      *service.EventNormalizer
	catalog         *service.SlotCatalog
	locker          *service.AddressLocker
	guard           *service.DeliveryGuard
	audit           service.AuditService
	dispatcher      gateway.MessageDispatcher
	doctorRepo      repository.DoctorRepository
	patientRepo     repository.PatientRepository
	appointmentRepo repository.AppointmentRepository
	templates       config.TemplateConfig
}

func NewConversationUsecase(deps ConversationDeps) ConversationUsecase {
	locker := deps.Locker
	if locker == nil {
		locker = service.NewAddressLocker()
	}
	return &conversationUsecase{
		db:              deps.DB,
		log:             deps.Log,
		metrics:         deps.Metrics,
		normalizer:      deps.Normalizer,
		catalog:         deps.Catalog,
		locker:          locker,
		guard:           deps.Guard,
		audit:           deps.Audit,
		dispatcher:      deps.Dispatcher,
		doctorRepo:      deps.DoctorRepo,
		patientRepo:     deps.PatientRepo,
		appointmentRepo: deps.AppointmentRepo,
		templates:       deps.Templates,
	}
}

// reply is the single outbound message decided for an event
type reply struct {
	kind     entity.OutboundKind
	text     string
	template string
	params   []string
	list     *entity.SelectableList
}

type outcome struct {
	status string
	reply  *reply
}

func textReply(body string) *reply {
	return &reply{kind: entity.OutboundKindText, text: body}
}

func templateReply(name string, params ...string) *reply {
	return &reply{kind: entity.OutboundKindTemplate, template: name, params: params}
}

func listReply(list entity.SelectableList) *reply {
	return &reply{kind: entity.OutboundKindList, list: &list}
}

func fallbackOutcome() *outcome {
	return &outcome{status: StatusFallback, reply: textReply(msgFallback)}
}

// inbound carries the per-event context shared by the intent handlers
type inbound struct {
	event   *entity.InboundEvent
	doctor  *entity.Doctor
	patient *entity.Patient
}

func (u *conversationUsecase) HandleInbound(ctx context.Context, payload map[string]string) (*dto.WebhookResult, error) {
	started := time.Now()
	ctx, span := tracer.Start(ctx, "conversation.HandleInbound")
	defer span.End()

	event, err := u.normalizer.Normalize(payload)
	if err != nil {
		u.log.Warnf("Rejected inbound event: %+v", err)
		u.metrics.ObserveInbound("invalid", "rejected")
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	doctor, err := u.doctorRepo.FindByPhone(ctx, u.db, event.Recipient)
	if err != nil {
		u.log.Warnf("Failed to find doctor by address %s: %+v", event.Recipient, err)
		return nil, err
	}

	intent, patient, err := service.Classify(event, func() (*entity.Patient, error) {
		return u.patientRepo.FindByPhone(ctx, u.db, event.Sender)
	})
	if err != nil {
		u.log.Warnf("Failed to classify inbound event from %s: %+v", event.Sender, err)
		return nil, err
	}

	span.SetAttributes(attribute.String("conversation.intent", string(intent)))
	u.log.WithFields(logrus.Fields{
		"sender":     event.Sender,
		"recipient":  event.Recipient,
		"intent":     intent,
		"selection":  event.SelectionID,
		"button":     event.ButtonID,
		"message_id": event.MessageID,
	}).Info("Inbound event classified")

	in := &inbound{event: event, doctor: doctor, patient: patient}
	out, err := u.route(ctx, intent, in)
	if err != nil {
		u.metrics.ObserveInbound(string(intent), "error")
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	result := &dto.WebhookResult{Status: out.status, Intent: string(intent)}
	if out.reply != nil {
		if err := u.dispatch(ctx, event.Sender, out.reply); err != nil {
			u.metrics.ObserveInbound(string(intent), "dispatch_failed")
			span.SetStatus(codes.Error, err.Error())
			return result, err
		}
	}

	u.metrics.ObserveInbound(string(intent), "ok")
	u.metrics.ObserveWebhookLatency(string(intent), time.Since(started).Seconds())
	return result, nil
}

func (u *conversationUsecase) route(ctx context.Context, intent entity.Intent, in *inbound) (*outcome, error) {
	switch intent {
	case entity.IntentGreeting:
		return u.greet(in), nil
	case entity.IntentStartBooking:
		return u.offerSlots(in), nil
	case entity.IntentStartReschedule:
		return u.offerReschedule(ctx, in)
	case entity.IntentStartCancel:
		return u.offerCancellation(ctx, in)
	case entity.IntentSlotSelection:
		return u.bookSlot(ctx, in)
	case entity.IntentCancelSelection:
		return u.cancelAppointment(ctx, in)
	case entity.IntentNameCapture:
		return u.captureName(ctx, in)
	default:
		return fallbackOutcome(), nil
	}
}

func (u *conversationUsecase) greet(in *inbound) *outcome {
	return &outcome{
		status: StatusGreetingSent,
		reply:  templateReply(u.templates.Greeting, entity.DoctorDisplayName(in.doctor)),
	}
}

func (u *conversationUsecase) offerSlots(in *inbound) *outcome {
	return &outcome{
		status: StatusBookingListSent,
		reply: listReply(entity.SelectableList{
			Header:       fmt.Sprintf("Available slots for %s", entity.DoctorDisplayName(in.doctor)),
			Body:         "Please choose one of the options below to schedule your appointment:",
			Footer:       "Tap Select Slot to choose a time",
			ButtonLabel:  listButtonLabel,
			SectionTitle: listSectionTitle,
			Items:        slotItems(u.catalog.Current()),
		}),
	}
}

func (u *conversationUsecase) offerReschedule(ctx context.Context, in *inbound) (*outcome, error) {
	notFound := &outcome{status: StatusNoRescheduleTarget, reply: textReply(msgNoRescheduleTarget)}

	patient, err := u.patientRepo.FindByPhone(ctx, u.db, in.event.Sender)
	if err != nil {
		u.log.Warnf("Failed to find patient %s: %+v", in.event.Sender, err)
		return nil, err
	}
	if patient == nil {
		return notFound, nil
	}

	current, err := u.appointmentRepo.FindLatestScheduledWithDoctor(ctx, u.db, patient.ID, entity.DoctorIDOf(in.doctor))
	if err != nil {
		u.log.Warnf("Failed to find scheduled appointment for patient %s: %+v", patient.ID, err)
		return nil, err
	}
	if current == nil {
		return notFound, nil
	}

	return &outcome{
		status: StatusRescheduleListSent,
		reply: listReply(entity.SelectableList{
			Header:       fmt.Sprintf("Reschedule for %s", entity.DoctorDisplayName(in.doctor)),
			Body:         fmt.Sprintf("Your current appointment: %s. Please select a new slot:", current.SlotDescriptor),
			Footer:       "Select a new slot",
			ButtonLabel:  listButtonLabel,
			SectionTitle: listSectionTitle,
			Items:        slotItems(u.catalog.Current()),
		}),
	}, nil
}

func (u *conversationUsecase) offerCancellation(ctx context.Context, in *inbound) (*outcome, error) {
	nothing := &outcome{status: StatusNothingToCancel, reply: textReply(msgNothingToCancel)}

	patient, err := u.patientRepo.FindByPhone(ctx, u.db, in.event.Sender)
	if err != nil {
		u.log.Warnf("Failed to find patient %s: %+v", in.event.Sender, err)
		return nil, err
	}
	if patient == nil {
		return nothing, nil
	}

	appointments, err := u.appointmentRepo.FindByPatientAndStatus(ctx, u.db, patient.ID, entity.AppointmentStatusScheduled)
	if err != nil {
		u.log.Warnf("Failed to list scheduled appointments for patient %s: %+v", patient.ID, err)
		return nil, err
	}
	if len(appointments) == 0 {
		return nothing, nil
	}

	names, err := u.doctorNames(ctx, appointments)
	if err != nil {
		return nil, err
	}

	items := make([]entity.ListItem, 0, len(appointments))
	for _, appt := range appointments {
		items = append(items, entity.ListItem{
			ID:          entity.CancelSelectionID(appt.ID),
			Title:       appt.SlotDescriptor,
			Description: fmt.Sprintf("Doctor: %s", doctorNameFor(names, appt.DoctorID)),
		})
	}

	return &outcome{
		status: StatusCancelListSent,
		reply: listReply(entity.SelectableList{
			Header:       "Your Appointments",
			Body:         "Select an appointment to cancel:",
			Footer:       "Cancel an appointment",
			ButtonLabel:  listButtonLabel,
			SectionTitle: listSectionTitle,
			Items:        items,
		}),
	}, nil
}

// bookSlot validates the selection against a regenerated catalog, then
// find-or-creates the patient and records a scheduled appointment in one transaction.
func (u *conversationUsecase) bookSlot(ctx context.Context, in *inbound) (*outcome, error) {
	slot, ok := u.catalog.Find(in.event.SelectionID)
	if !ok {
		return &outcome{status: StatusSlotNotFound, reply: textReply(msgSlotNotFound)}, nil
	}

	sender := in.event.Sender
	if !u.guard.FirstDelivery(ctx, sender, slot.ID) {
		u.log.Infof("Duplicate selection of %s from %s ignored", slot.ID, sender)
		return &outcome{status: StatusDuplicateSelection}, nil
	}

	var patient *entity.Patient
	appointment := &entity.Appointment{
		DoctorID:       entity.DoctorIDOf(in.doctor),
		SlotID:         slot.ID,
		SlotDescriptor: slot.Descriptor(),
		SlotStartsAt:   &slot.StartsAt,
		Status:         entity.AppointmentStatusScheduled,
	}

	err := u.inAddressTx(ctx, sender, func(tx *gorm.DB) error {
		p, created, err := u.patientRepo.FindOrCreate(ctx, tx, sender)
		if err != nil {
			u.log.Warnf("Failed to find or create patient %s: %+v", sender, err)
			return err
		}
		if created {
			if err := u.audit.Record(ctx, tx, sender, entity.AuditActionPatientCreate, "patient", p.ID.String(), p); err != nil {
				return err
			}
		}
		patient = p

		appointment.PatientID = p.ID
		if err := u.appointmentRepo.Create(ctx, tx, appointment); err != nil {
			u.log.Warnf("Failed to create appointment for patient %s: %+v", p.ID, err)
			return err
		}
		return u.audit.Record(ctx, tx, sender, entity.AuditActionAppointmentCreate, "appointment", appointment.ID.String(), appointment)
	})
	if err != nil {
		u.guard.Release(ctx, sender, slot.ID)
		return nil, err
	}

	u.metrics.ObserveAppointment(string(entity.AppointmentStatusScheduled))
	u.log.Infof("Appointment created: id=%s, patient=%s, slot=%s", appointment.ID, patient.ID, slot.ID)

	if !patient.HasName() {
		return &outcome{
			status: StatusAskedForName,
			reply:  textReply(fmt.Sprintf(msgAskForName, slot.Title)),
		}, nil
	}
	return &outcome{
		status: StatusAppointmentScheduled,
		reply: templateReply(u.templates.Scheduled,
			patient.DisplayName(), entity.DoctorDisplayName(in.doctor), appointment.SlotDescriptor),
	}, nil
}

// captureName stores the sender's name and confirms their most recent appointment.
// Nothing is persisted when the sender has no appointment.
func (u *conversationUsecase) captureName(ctx context.Context, in *inbound) (*outcome, error) {
	sender := in.event.Sender
	var (
		patient *entity.Patient
		latest  *entity.Appointment
	)

	err := u.inAddressTx(ctx, sender, func(tx *gorm.DB) error {
		p, err := u.patientRepo.FindByPhone(ctx, tx, sender)
		if err != nil {
			u.log.Warnf("Failed to find patient %s: %+v", sender, err)
			return err
		}
		// a concurrent event may have captured the name first
		if p == nil || p.HasName() {
			return nil
		}

		appt, err := u.appointmentRepo.FindLatestByPatient(ctx, tx, p.ID)
		if err != nil {
			u.log.Warnf("Failed to find latest appointment for patient %s: %+v", p.ID, err)
			return err
		}
		if appt == nil {
			return nil
		}

		p.SetName(in.event.Text)
		if err := u.patientRepo.UpdateName(ctx, tx, p.ID, p.DisplayName()); err != nil {
			u.log.Warnf("Failed to update name of patient %s: %+v", p.ID, err)
			return err
		}
		if err := u.audit.Record(ctx, tx, sender, entity.AuditActionPatientName, "patient", p.ID.String(), p.DisplayName()); err != nil {
			return err
		}
		patient, latest = p, appt
		return nil
	})
	if err != nil {
		return nil, err
	}
	if patient == nil {
		return fallbackOutcome(), nil
	}

	doctorName, err := u.appointmentDoctorName(ctx, latest, in.doctor)
	if err != nil {
		return nil, err
	}

	u.log.Infof("Patient name captured: patient=%s", patient.ID)
	return &outcome{
		status: StatusNameSaved,
		reply:  templateReply(u.templates.Scheduled, patient.DisplayName(), doctorName, latest.SlotDescriptor),
	}, nil
}

// cancelAppointment completes a cancel_<id> selection for an appointment the sender owns
func (u *conversationUsecase) cancelAppointment(ctx context.Context, in *inbound) (*outcome, error) {
	appointmentID, ok := entity.ParseCancelSelectionID(in.event.SelectionID)
	if !ok {
		return fallbackOutcome(), nil
	}

	sender := in.event.Sender
	var (
		patient   *entity.Patient
		cancelled *entity.Appointment
	)

	err := u.inAddressTx(ctx, sender, func(tx *gorm.DB) error {
		p, err := u.patientRepo.FindByPhone(ctx, tx, sender)
		if err != nil {
			u.log.Warnf("Failed to find patient %s: %+v", sender, err)
			return err
		}
		if p == nil {
			return nil
		}

		appt, err := u.appointmentRepo.FindByID(ctx, tx, appointmentID)
		if err != nil {
			u.log.Warnf("Failed to find appointment %s: %+v", appointmentID, err)
			return err
		}
		if appt == nil || appt.PatientID != p.ID {
			return nil
		}
		if err := appt.Cancel(); err != nil {
			return nil
		}

		affected, err := u.appointmentRepo.Cancel(ctx, tx, appt.ID)
		if err != nil {
			u.log.Warnf("Failed to cancel appointment %s: %+v", appt.ID, err)
			return err
		}
		if affected == 0 {
			return nil
		}
		if err := u.audit.Record(ctx, tx, sender, entity.AuditActionAppointmentCancel, "appointment", appt.ID.String(), appt.SlotDescriptor); err != nil {
			return err
		}
		patient, cancelled = p, appt
		return nil
	})
	if err != nil {
		return nil, err
	}
	if cancelled == nil {
		return fallbackOutcome(), nil
	}

	doctorName, err := u.appointmentDoctorName(ctx, cancelled, in.doctor)
	if err != nil {
		return nil, err
	}

	patientName := patient.DisplayName()
	if patientName == "" {
		patientName = patientFallback
	}

	u.metrics.ObserveAppointment(string(entity.AppointmentStatusCancelled))
	u.log.Infof("Appointment cancelled: id=%s, patient=%s", cancelled.ID, patient.ID)
	return &outcome{
		status: StatusAppointmentCancelled,
		reply:  templateReply(u.templates.Cancelled, patientName, doctorName, cancelled.SlotDescriptor),
	}, nil
}

// inAddressTx runs fn in a transaction while holding the sender's address lock
func (u *conversationUsecase) inAddressTx(ctx context.Context, address string, fn func(tx *gorm.DB) error) error {
	unlock := u.locker.Lock(address)
	defer unlock()

	tx := u.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		u.log.Warnf("Failed to begin transaction: %+v", tx.Error)
		return tx.Error
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed to commit transaction: %+v", err)
		return err
	}
	return nil
}

func (u *conversationUsecase) dispatch(ctx context.Context, to string, r *reply) error {
	var err error
	switch r.kind {
	case entity.OutboundKindTemplate:
		err = u.dispatcher.SendTemplate(ctx, to, r.template, r.params)
	case entity.OutboundKindList:
		err = u.dispatcher.SendSelectableList(ctx, to, *r.list)
	default:
		err = u.dispatcher.SendText(ctx, to, r.text)
	}
	u.metrics.ObserveOutbound(string(r.kind), err)
	if err != nil {
		u.log.Warnf("Failed to send %s message to %s: %+v", r.kind, to, err)
		return fmt.Errorf("%w: %w", ErrDispatchFailed, err)
	}
	return nil
}

// appointmentDoctorName names the doctor an appointment was booked with
func (u *conversationUsecase) appointmentDoctorName(ctx context.Context, appt *entity.Appointment, matched *entity.Doctor) (string, error) {
	if appt.DoctorID == nil {
		return entity.DefaultDoctorLabel, nil
	}
	if matched != nil && matched.ID == *appt.DoctorID {
		return entity.DoctorDisplayName(matched), nil
	}
	doctor, err := u.doctorRepo.FindByID(ctx, u.db, *appt.DoctorID)
	if err != nil {
		u.log.Warnf("Failed to find doctor %s: %+v", *appt.DoctorID, err)
		return "", err
	}
	return entity.DoctorDisplayName(doctor), nil
}

func (u *conversationUsecase) doctorNames(ctx context.Context, appointments []entity.Appointment) (map[string]string, error) {
	seen := make(map[string]struct{})
	var ids []uuid.UUID
	for _, appt := range appointments {
		if appt.DoctorID == nil {
			continue
		}
		key := appt.DoctorID.String()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		ids = append(ids, *appt.DoctorID)
	}

	doctors, err := u.doctorRepo.FindByIDs(ctx, u.db, ids)
	if err != nil {
		u.log.Warnf("Failed to load doctors for appointments: %+v", err)
		return nil, err
	}

	names := make(map[string]string, len(doctors))
	for _, d := range doctors {
		names[d.ID.String()] = d.Name
	}
	return names, nil
}

func doctorNameFor(names map[string]string, doctorID *uuid.UUID) string {
	if doctorID == nil {
		return ""
	}
	return names[doctorID.String()]
}

func slotItems(slots []entity.Slot) []entity.ListItem {
	items := make([]entity.ListItem, 0, len(slots))
	for _, s := range slots {
		items = append(items, entity.ListItem{ID: s.ID, Title: s.Title, Description: s.Description})
	}
	return items
}
