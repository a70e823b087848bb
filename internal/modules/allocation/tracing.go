package allocation

import "go.opentelemetry.io/otel"

var tracer = otel.Tracer("github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/modules/allocation")
