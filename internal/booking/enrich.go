package booking

import (
	"context"
)

// EnrichHistory backfills unresolved display-name snapshots in the
// audit trail. Bookings taken while a directory service was down leave
// "unknown" names behind; the worker calls this on an interval until
// the rows are whole. Returns how many rows were updated.
func (s *Service) EnrichHistory(ctx context.Context, batchSize int) (int, error) {
	entries, err := s.repo.ListHistoryMissingNames(ctx, batchSize)
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, nil
	}

	profIDs := make([]int64, 0, len(entries))
	patIDs := make([]int64, 0, len(entries))
	for _, e := range entries {
		profIDs = append(profIDs, e.ProfessionalID)
		patIDs = append(patIDs, e.PatientID)
	}

	profNames, err := s.professionals.GetNames(ctx, profIDs)
	if err != nil {
		return 0, err
	}
	patNames, err := s.patients.GetNames(ctx, patIDs)
	if err != nil {
		return 0, err
	}

	serviceNames := map[int64]string{}
	updated := 0
	for _, e := range entries {
		prof := pickName(e.ProfessionalName, profNames[e.ProfessionalID])
		pat := pickName(e.PatientName, patNames[e.PatientID])

		svc := e.ServiceName
		if e.ServiceID != nil && (svc == "" || svc == unresolvedName) {
			id := *e.ServiceID
			name, ok := serviceNames[id]
			if !ok {
				if resolved, err := s.catalog.GetServiceName(ctx, id); err == nil {
					name = resolved
				} else {
					name = svc
					s.log.Warn().Err(err).Int64("service_id", id).Msg("service name lookup failed")
				}
				serviceNames[id] = name
			}
			svc = name
		}

		if prof == e.ProfessionalName && pat == e.PatientName && svc == e.ServiceName {
			continue
		}
		if err := s.repo.UpdateHistoryNames(ctx, e.ID, prof, pat, svc); err != nil {
			return updated, err
		}
		updated++
	}

	if updated > 0 {
		s.log.Info().Int("rows", updated).Msg("history names backfilled")
	}
	return updated, nil
}

func pickName(current, resolved string) string {
	if current != "" && current != unresolvedName {
		return current
	}
	if resolved != "" && resolved != unresolvedName {
		return resolved
	}
	return current
}
