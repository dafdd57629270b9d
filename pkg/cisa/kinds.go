package cisa

// Schema tables. Widths listed here are the widest layout; version.go holds
// the downgrades applied to older files.

func metadataSchema(kind Kind) *Schema {
	return newSchema(kind,
		fixed("name_index", Int32),
		fixed("num_elements", Int16),
		fixed("attribute_count", Int8),
		array("attributes", "attribute_count", KindAttributeInfo),
	)
}

func bodySchema(kind Kind) *Schema {
	slots := []Slot{
		fixed("string_count", Int32),
		array("strings", "string_count", KindStringPool),
		fixed("name_index", Int32),
		fixed("variable_count", Int32),
		array("variables", "variable_count", KindVariable),
		fixed("address_count", Int16),
		array("addresses", "address_count", KindAddressInfo),
		fixed("predicate_count", Int16),
		array("predicates", "predicate_count", KindPredicateInfo),
		fixed("label_count", Int16),
		array("labels", "label_count", KindLabelInfo),
		fixed("sampler_count", Int8),
		array("samplers", "sampler_count", KindSamplerInfo),
		fixed("surface_count", Int8),
		array("surfaces", "surface_count", KindSurfaceInfo),
		fixed("vme_count", Int8),
		array("vmes", "vme_count", KindVmeInfo),
	}
	if kind == KindKernelBody {
		slots = append(slots,
			fixed("input_count", Int32),
			array("inputs", "input_count", KindInputInfo),
			fixed("size", Int32),
			fixed("entry", Int32),
		)
	} else {
		slots = append(slots,
			fixed("size", Int32),
			fixed("entry", Int32),
			fixed("input_size", Int8),
			fixed("return_size", Int8),
		)
	}
	slots = append(slots,
		fixed("attribute_count", Int16),
		array("attributes", "attribute_count", KindAttributeInfo),
		blob("instructions", "size"),
	)
	return newSchema(kind, slots...)
}

var schemas = [numKinds]*Schema{
	KindHeader: newSchema(KindHeader,
		fixed("magic", Int32),
		fixed("major", Int8),
		fixed("minor", Int8),
		fixed("kernel_count", Int16),
		array("kernels", "kernel_count", KindKernel),
		fixed("variable_count", Int16),
		array("variables", "variable_count", KindGlobalVariable),
		fixed("function_count", Int16),
		array("functions", "function_count", KindFunction),
	),
	KindKernel: newSchema(KindKernel,
		fixed("name_len", Int16),
		inline("name", "name_len"),
		fixed("offset", Int32),
		fixed("size", Int32),
		fixed("input_offset", Int32),
		fixed("variable_reloc_count", Int16),
		array("variable_relocs", "variable_reloc_count", KindRelocationInfo),
		fixed("function_reloc_count", Int16),
		array("function_relocs", "function_reloc_count", KindRelocationInfo),
		fixed("gen_binary_count", Int8),
		array("gen_binaries", "gen_binary_count", KindGenBinary),
	),
	KindFunction: newSchema(KindFunction,
		fixed("linkage", Int8),
		fixed("name_len", Int16),
		inline("name", "name_len"),
		fixed("offset", Int32),
		fixed("size", Int32),
		fixed("variable_reloc_count", Int16),
		array("variable_relocs", "variable_reloc_count", KindRelocationInfo),
		fixed("function_reloc_count", Int16),
		array("function_relocs", "function_reloc_count", KindRelocationInfo),
	),
	KindGlobalVariable: newSchema(KindGlobalVariable,
		fixed("linkage", Int8),
		fixed("name_len", Int16),
		inline("name", "name_len"),
		fixed("bit_properties", Int8),
		fixed("num_elements", Int16),
		fixed("attribute_count", Int8),
		array("attributes", "attribute_count", KindAttributeInfo),
	),
	KindKernelBody:   bodySchema(KindKernelBody),
	KindFunctionBody: bodySchema(KindFunctionBody),
	KindStringPool: newSchema(KindStringPool,
		fixed("length", Int16),
		pooled("value", "length"),
	),
	KindVariable: newSchema(KindVariable,
		fixed("name_index", Int32),
		fixed("bit_properties", Int8),
		fixed("num_elements", Int16),
		fixed("alias_index", Int32),
		fixed("alias_offset", Int16),
		fixed("alias_scope", Int8),
		fixed("attribute_count", Int8),
		array("attributes", "attribute_count", KindAttributeInfo),
	),
	KindAddressInfo:   metadataSchema(KindAddressInfo),
	KindPredicateInfo: metadataSchema(KindPredicateInfo),
	KindLabelInfo: newSchema(KindLabelInfo,
		fixed("name_index", Int32),
		fixed("kind", Int8),
		fixed("attribute_count", Int8),
		array("attributes", "attribute_count", KindAttributeInfo),
	),
	KindSamplerInfo: metadataSchema(KindSamplerInfo),
	KindSurfaceInfo: metadataSchema(KindSurfaceInfo),
	KindVmeInfo:     metadataSchema(KindVmeInfo),
	KindAttributeInfo: newSchema(KindAttributeInfo,
		fixed("name_index", Int32),
		fixed("size", Int8),
		blob("value", "size"),
	),
	KindInputInfo: newSchema(KindInputInfo,
		fixed("kind", Int8),
		fixed("id", Int32),
		fixed("offset", Int16),
		fixed("size", Int16),
	),
	KindRelocationInfo: newSchema(KindRelocationInfo,
		fixed("symbolic_index", Int16),
		signed("resolved_index", Int16),
	),
	KindGenBinary: newSchema(KindGenBinary,
		fixed("platform", Int8),
		fixed("binary_offset", Int32),
		fixed("binary_size", Int32),
	),
}
