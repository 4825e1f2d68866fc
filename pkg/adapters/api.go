package adapters

import (
	"github.com/de-tools/soil-atlas/pkg/models/api"
	"github.com/de-tools/soil-atlas/pkg/models/domain"
)

func MapDomainAttributeToAPI(desc domain.AttributeDescriptor) api.Attribute {
	return api.Attribute{
		Name:       desc.Name,
		Table:      desc.Table,
		Column:     desc.Column,
		DataType:   string(desc.DataType),
		Level:      string(desc.Level),
		Method:     string(desc.Method),
		TieBreak:   string(desc.TieBreak),
		Unit:       desc.Unit,
		Precision:  desc.Precision,
		DomainName: desc.DomainName,
		Primary:    desc.PrimaryColumn,
		Secondary:  desc.SecondaryColumn,
		Fuzzy:      desc.Fuzzy,
	}
}

func MapDomainRunToAPI(r *domain.Run) api.Run {
	out := api.Run{
		ID:         r.ID,
		Attributes: r.Attributes,
		Status:     string(r.Status),
		Processed:  r.Processed,
		Total:      len(r.Attributes),
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
	if r.Error != nil {
		out.Error = *r.Error
	}
	return out
}
